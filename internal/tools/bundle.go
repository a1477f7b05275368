package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

var (
	buildBlockPattern = regexp.MustCompile(`(?s)<!--\s*build:(\w+)(?:\(([^)]*)\))?(?:\s+(\S+))?\s*-->(.*?)<!--\s*endbuild\s*-->`)
	scriptSrcPattern  = regexp.MustCompile(`(?i)<script\b[^>]*\bsrc\s*=\s*["']([^"']+)["']`)
	linkHrefPattern   = regexp.MustCompile(`(?i)<link\b[^>]*\bhref\s*=\s*["']([^"']+)["']`)
)

// Block is one build comment block found in a page
type Block struct {
	Kind       string
	SearchPath []string
	Target     string
	Refs       []string
}

// Bundler concatenates the assets referenced inside build blocks and
// rewrites the block to a single reference to the bundle.
type Bundler struct {
	root       string
	searchPath []string
}

// NewBundler creates a Bundler searching intermediateDir first, then root
func NewBundler(root, intermediateDir string) *Bundler {
	return &Bundler{
		root:       root,
		searchPath: []string{intermediateDir, root},
	}
}

// Name returns the adapter name
func (b *Bundler) Name() string { return "bundle" }

// ParseBlocks lists the build blocks of a page in document order
func ParseBlocks(page []byte) []Block {
	var blocks []Block
	for _, match := range buildBlockPattern.FindAllSubmatch(page, -1) {
		block := Block{
			Kind:   string(match[1]),
			Target: string(match[3]),
		}
		if alt := strings.TrimSpace(string(match[2])); alt != "" {
			for _, dir := range strings.Split(alt, ",") {
				block.SearchPath = append(block.SearchPath, strings.TrimSpace(dir))
			}
		}
		block.Refs = blockRefs(block.Kind, match[4])
		blocks = append(blocks, block)
	}
	return blocks
}

func blockRefs(kind string, body []byte) []string {
	pattern := scriptSrcPattern
	if kind == "css" {
		pattern = linkHrefPattern
	}
	var refs []string
	for _, m := range pattern.FindAllSubmatch(body, -1) {
		refs = append(refs, string(m[1]))
	}
	return refs
}

// Bundle is the stage: pages come in, rewritten pages and bundles go out.
// Non-HTML input files are dropped.
func (b *Bundler) Bundle(ctx context.Context, files []pipeline.File) ([]pipeline.File, error) {
	var out []pipeline.File
	emitted := make(map[string]bool)

	for _, page := range files {
		if ext := page.Ext(); ext != ".html" && ext != ".htm" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rewritten, bundles, err := b.bundlePage(page)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten)
		for _, bundle := range bundles {
			if emitted[bundle.Path] {
				continue
			}
			emitted[bundle.Path] = true
			out = append(out, bundle)
		}
	}

	return out, nil
}

func (b *Bundler) bundlePage(page pipeline.File) (pipeline.File, []pipeline.File, error) {
	pageDir := path.Dir(page.Path)
	var bundles []pipeline.File
	var bundleErr error

	data := buildBlockPattern.ReplaceAllFunc(page.Data, func(raw []byte) []byte {
		if bundleErr != nil {
			return raw
		}
		blocks := ParseBlocks(raw)
		if len(blocks) != 1 {
			return raw
		}
		block := blocks[0]

		switch block.Kind {
		case "remove":
			return nil
		case "js", "css":
		default:
			logger.Op.WithFields(map[string]interface{}{
				"page": page.Path,
				"kind": block.Kind,
			}).Warn("Leaving build block of unknown type untouched")
			return raw
		}

		if block.Target == "" {
			bundleErr = builderrors.NewToolFailedError(b.Name(), page.Path,
				fmt.Errorf("build:%s block has no target", block.Kind))
			return raw
		}

		content, err := b.concat(pageDir, block)
		if err != nil {
			bundleErr = builderrors.NewToolFailedError(b.Name(), page.Path, err)
			return raw
		}
		bundles = append(bundles, pipeline.File{
			Path: resolveRef(pageDir, block.Target),
			Data: content,
			Mode: 0644,
		})

		if block.Kind == "js" {
			return []byte(fmt.Sprintf(`<script src="%s"></script>`, block.Target))
		}
		return []byte(fmt.Sprintf(`<link rel="stylesheet" href="%s">`, block.Target))
	})
	if bundleErr != nil {
		return page, nil, bundleErr
	}

	page.Data = data
	return page, bundles, nil
}

func (b *Bundler) concat(pageDir string, block Block) ([]byte, error) {
	searchPath := b.searchPath
	if len(block.SearchPath) > 0 {
		searchPath = nil
		for _, dir := range block.SearchPath {
			searchPath = append(searchPath, filepath.Join(b.root, filepath.FromSlash(dir)))
		}
	}

	var buf bytes.Buffer
	for i, ref := range block.Refs {
		data, err := b.read(searchPath, resolveRef(pageDir, ref))
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func (b *Bundler) read(searchPath []string, rel string) ([]byte, error) {
	for _, dir := range searchPath {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s not found in %s", rel, strings.Join(searchPath, ", "))
}

// resolveRef turns a page reference into a path relative to the site root.
// Query strings and fragments are ignored; a leading slash is root-relative.
func resolveRef(pageDir, ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.HasPrefix(ref, "/") {
		return strings.TrimPrefix(path.Clean(ref), "/")
	}
	return strings.TrimPrefix(path.Clean(path.Join(pageDir, ref)), "/")
}
