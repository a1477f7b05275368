package tools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/maxkimambo/sitebuild/internal/config"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
	"github.com/maxkimambo/sitebuild/internal/logger"
	"github.com/maxkimambo/sitebuild/internal/pipeline"
)

// Linter normalises source formatting in place and reports problems it
// cannot fix.
type Linter struct {
	options   config.LintOptions
	sourceDir string
}

// NewLinter creates a Linter for sourceDir
func NewLinter(options config.LintOptions, sourceDir string) *Linter {
	return &Linter{options: options, sourceDir: sourceDir}
}

// Name returns the adapter name
func (l *Linter) Name() string { return "lint" }

// Report is the outcome of a lint run
type Report struct {
	// Fixed are the files whose formatting was rewritten
	Fixed []pipeline.File
	// Findings are problems left for the author, as file:line: message
	Findings []string
}

// Err returns a lint error when there are findings
func (r *Report) Err() error {
	if len(r.Findings) == 0 {
		return nil
	}
	return builderrors.NewLintError(r.Findings)
}

// Styles normalises stylesheet whitespace. Stylesheets never produce findings.
func (l *Linter) Styles(files []pipeline.File, report *Report) {
	for _, file := range files {
		if fixed, changed := NormalizeWhitespace(file.Data, l.options.IndentSize); changed {
			file.Data = fixed
			report.Fixed = append(report.Fixed, file)
		}
	}
}

// Scripts fixes whitespace and syntax-checks each script
func (l *Linter) Scripts(files []pipeline.File, report *Report) {
	for _, file := range files {
		data, changed := NormalizeScript(file.Data, l.options.IndentSize)
		if changed {
			fixed := file
			fixed.Data = data
			report.Fixed = append(report.Fixed, fixed)
		}

		result := api.Transform(string(data), api.TransformOptions{
			Loader:     api.LoaderJS,
			Sourcefile: file.Path,
			LogLevel:   api.LogLevelSilent,
		})
		report.Findings = append(report.Findings, formatMessages(result.Errors)...)
		for _, warning := range result.Warnings {
			report.Findings = append(report.Findings, formatMessages([]api.Message{warning})...)
		}
	}
}

// External runs the configured external linter in the source directory
func (l *Linter) External(ctx context.Context, report *Report) {
	if strings.TrimSpace(l.options.Command) == "" {
		return
	}

	out, err := ShellCommand{Command: l.options.Command, Dir: l.sourceDir}.Run(ctx, nil)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			logger.User.Info(line)
		}
	}
	if err != nil {
		report.Findings = append(report.Findings, fmt.Sprintf("%s: %v", l.options.Command, err))
	}
}

// NormalizeWhitespace converts line endings to LF, expands tabs in leading
// indentation, strips trailing whitespace, collapses runs of blank lines and
// ends the file with exactly one newline.
func NormalizeWhitespace(data []byte, indentSize int) ([]byte, bool) {
	return normalize(data, indentSize, nil)
}

// NormalizeScript is NormalizeWhitespace for JavaScript. Text inside
// template literals is string content and is left as written.
func NormalizeScript(data []byte, indentSize int) ([]byte, bool) {
	return normalize(data, indentSize, templateLines)
}

// lineSpan says whether a line begins and ends inside a literal
type lineSpan struct {
	startsIn bool
	endsIn   bool
}

func normalize(data []byte, indentSize int, literals func(string) []lineSpan) ([]byte, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return data, false
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var spans []lineSpan
	if literals != nil {
		spans = literals(text)
	}
	lines := strings.Split(strings.TrimRight(text, "\n \t"), "\n")

	indent := strings.Repeat(" ", indentSize)
	var buf strings.Builder
	blank := false
	for i, line := range lines {
		var span lineSpan
		if i < len(spans) {
			span = spans[i]
		}
		if span.startsIn {
			blank = false
			if !span.endsIn {
				line = strings.TrimRight(line, " \t")
			}
			buf.WriteString(line)
			buf.WriteString("\n")
			continue
		}

		if !span.endsIn {
			line = strings.TrimRight(line, " \t")
		}
		if line == "" {
			if blank || buf.Len() == 0 {
				continue
			}
			blank = true
			buf.WriteString("\n")
			continue
		}
		blank = false

		trimmed := strings.TrimLeft(line, " \t")
		lead := line[:len(line)-len(trimmed)]
		buf.WriteString(strings.ReplaceAll(lead, "\t", indent))
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	out := []byte(buf.String())
	return out, !bytes.Equal(out, data)
}

// templateLines scans JavaScript for template literals, including nested
// ones inside ${} substitutions. Quotes and comments are skipped so a
// backtick in them does not count. Regex literals are not recognised.
func templateLines(text string) []lineSpan {
	const (
		code = iota
		singleQuote
		doubleQuote
		lineComment
		blockComment
	)

	// -1 is template text, n >= 0 is a ${} substitution at brace depth n
	var stack []int
	inTemplate := func() bool { return len(stack) > 0 && stack[len(stack)-1] < 0 }

	spans := []lineSpan{{}}
	mode := code
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			spans[len(spans)-1].endsIn = inTemplate()
			spans = append(spans, lineSpan{startsIn: inTemplate()})
			if mode == lineComment || mode == singleQuote || mode == doubleQuote {
				mode = code
			}
			continue
		}

		if inTemplate() {
			switch {
			case c == '\\' && i+1 < len(text) && text[i+1] != '\n':
				i++
			case c == '`':
				stack = stack[:len(stack)-1]
			case c == '$' && i+1 < len(text) && text[i+1] == '{':
				stack = append(stack, 0)
				i++
			}
			continue
		}

		switch mode {
		case singleQuote, doubleQuote:
			if c == '\\' && i+1 < len(text) && text[i+1] != '\n' {
				i++
			} else if (c == '\'' && mode == singleQuote) || (c == '"' && mode == doubleQuote) {
				mode = code
			}
			continue
		case lineComment:
			continue
		case blockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				mode = code
				i++
			}
			continue
		}

		switch c {
		case '\'':
			mode = singleQuote
		case '"':
			mode = doubleQuote
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				mode = lineComment
				i++
			} else if i+1 < len(text) && text[i+1] == '*' {
				mode = blockComment
				i++
			}
		case '`':
			stack = append(stack, -1)
		case '{':
			if len(stack) > 0 {
				stack[len(stack)-1]++
			}
		case '}':
			if len(stack) > 0 {
				if stack[len(stack)-1] == 0 {
					stack = stack[:len(stack)-1]
				} else {
					stack[len(stack)-1]--
				}
			}
		}
	}
	spans[len(spans)-1].endsIn = inTemplate()
	return spans
}
