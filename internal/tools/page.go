package tools

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/maxkimambo/sitebuild/internal/config"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

// PageRenderer renders HTML templates with the site data. A fresh template
// set is built for every page so edited layouts are always picked up.
type PageRenderer struct {
	sourceDir   string
	packageFile string
	data        map[string]interface{}

	// Now supplies the value of the date variable
	Now func() time.Time
}

// NewPageRenderer creates a PageRenderer for the project in cfg
func NewPageRenderer(cfg *config.Config) *PageRenderer {
	return &PageRenderer{
		sourceDir:   cfg.SourcePath(),
		packageFile: cfg.Path("package.json"),
		data:        cfg.Data,
		Now:         time.Now,
	}
}

// Name returns the adapter name
func (p *PageRenderer) Name() string { return "page" }

// Context builds the template variables: every key of data, plus pkg and date
func (p *PageRenderer) Context() (pongo2.Context, error) {
	ctx := pongo2.Context{}
	for key, value := range p.data {
		ctx[key] = value
	}

	pkg := map[string]interface{}{}
	raw, err := os.ReadFile(p.packageFile)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &pkg); err != nil {
			return nil, builderrors.NewConfigFileError(p.packageFile, err)
		}
	case !os.IsNotExist(err):
		return nil, builderrors.NewPathError(p.packageFile, "Reading package.json", err)
	}
	ctx["pkg"] = pkg
	ctx["date"] = p.Now()

	return ctx, nil
}

// Transform renders one page
func (p *PageRenderer) Transform(_ context.Context, file pipeline.File) (pipeline.File, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(p.sourceDir)
	if err != nil {
		return file, builderrors.NewPathError(p.sourceDir, "Loading templates", err)
	}
	set := pongo2.NewSet("pages", loader)

	tpl, err := set.FromBytes(file.Data)
	if err != nil {
		return file, builderrors.NewToolFailedError(p.Name(), file.Path, err)
	}

	vars, err := p.Context()
	if err != nil {
		return file, err
	}

	out, err := tpl.ExecuteBytes(vars)
	if err != nil {
		return file, builderrors.NewToolFailedError(p.Name(), file.Path, err)
	}

	file.Data = out
	return file, nil
}
