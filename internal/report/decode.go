package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// document is the wrapped input shape; a bare list is accepted too.
type document struct {
	Violations []Violation `json:"violations" yaml:"violations"`
}

// Decode reads violations in format, "json" or "yaml". The input is either a
// list of violations or an object with a "violations" list.
func Decode(r io.Reader, format string) ([]Violation, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read violations: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	format = strings.ToLower(format)
	if format == "" {
		format = FormatJSON
	}
	var vs []Violation
	switch format {
	case FormatJSON:
		if raw[0] == '[' {
			err = json.Unmarshal(raw, &vs)
		} else {
			var doc document
			err = json.Unmarshal(raw, &doc)
			vs = doc.Violations
		}
	case FormatYAML, "yml":
		var node yaml.Node
		if err = yaml.Unmarshal(raw, &node); err == nil && len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Content[0].Decode(&vs)
		} else if err == nil {
			var doc document
			err = yaml.Unmarshal(raw, &doc)
			vs = doc.Violations
		}
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s violations: %w", format, err)
	}
	for i, v := range vs {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("violation %d: %w", i, err)
		}
	}
	return vs, nil
}
