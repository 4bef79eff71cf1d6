package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Summary describes a report run.
type Summary struct {
	Files       int  `json:"files" yaml:"files"`
	Total       int  `json:"total" yaml:"total"`
	Reported    int  `json:"reported" yaml:"reported"`
	Incremental bool `json:"incremental" yaml:"incremental"`
}

type Renderer interface {
	Render(w io.Writer, vs []Violation, s Summary) error
}

type Options struct {
	// Root is the directory violation paths are relative to, used to read
	// source lines for highlighting.
	Root      string
	Highlight bool
	// Style is a chroma style name.
	Style string
}

func NewRenderer(format string, opts Options) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return &textRenderer{opts: opts, sources: map[string][]string{}}, nil
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatYAML, "yml":
		return yamlRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

var (
	fileStyle    = lipgloss.NewStyle().Bold(true)
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#c586c0"))
	cleanStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#eab308"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

type textRenderer struct {
	opts    Options
	sources map[string][]string
}

func (r *textRenderer) Render(w io.Writer, vs []Violation, s Summary) error {
	for _, group := range GroupByFile(vs) {
		for _, v := range group.Violations {
			if _, err := fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
				fileStyle.Render(v.File), v.BeginLine, v.BeginColumn, ruleStyle.Render(v.Rule), v.Message); err != nil {
				return err
			}
			if !r.opts.Highlight {
				continue
			}
			if line, ok := r.sourceLine(v.File, v.BeginLine); ok {
				if _, err := fmt.Fprintf(w, "    %s\n", highlightLine(v.File, line, r.opts.Style)); err != nil {
					return err
				}
			}
		}
	}
	_, err := fmt.Fprintln(w, summaryLine(s))
	return err
}

func summaryLine(s Summary) string {
	mode := "full"
	if s.Incremental {
		mode = "incremental"
	}
	details := faintStyle.Render(fmt.Sprintf("(%d total in %d files, %s)", s.Total, s.Files, mode))
	if s.Reported == 0 {
		return cleanStyle.Render("no new violations") + " " + details
	}
	noun := "violations"
	if s.Reported == 1 {
		noun = "violation"
	}
	return warningStyle.Render(fmt.Sprintf("%d new %s", s.Reported, noun)) + " " + details
}

func (r *textRenderer) sourceLine(file string, line int) (string, bool) {
	lines, ok := r.sources[file]
	if !ok {
		path := file
		if !filepath.IsAbs(path) && r.opts.Root != "" {
			path = filepath.Join(r.opts.Root, filepath.FromSlash(file))
		}
		data, err := os.ReadFile(path)
		if err == nil {
			lines = strings.Split(string(data), "\n")
		}
		r.sources[file] = lines
	}
	if line <= 0 || line > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[line-1], "\r"), true
}

func highlightLine(path, line, styleName string) string {
	lexer := lexers.Match(path)
	if lexer == nil {
		return line
	}
	lexer = chroma.Coalesce(lexer)
	style := styles.Get(styleName)
	formatter := formatters.Get("terminal256")
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// encoded is the machine readable report shape.
type encoded struct {
	Summary    Summary            `json:"summary" yaml:"summary"`
	Violations []encodedViolation `json:"violations" yaml:"violations"`
}

type encodedViolation struct {
	ID        string `json:"id" yaml:"id"`
	Violation `yaml:",inline"`
}

func encode(vs []Violation, s Summary) encoded {
	out := encoded{Summary: s, Violations: make([]encodedViolation, 0, len(vs))}
	for _, group := range GroupByFile(vs) {
		for _, v := range group.Violations {
			out.Violations = append(out.Violations, encodedViolation{ID: v.ID(), Violation: v})
		}
	}
	return out
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, vs []Violation, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(encode(vs, s))
}

type yamlRenderer struct{}

func (yamlRenderer) Render(w io.Writer, vs []Violation, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(encode(vs, s)); err != nil {
		return err
	}
	return enc.Close()
}
