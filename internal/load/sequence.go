package load

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region lists are exported as bracketed sequences, either JSON
// (["a","b"]) or the single-quoted Python form (['a', 'b']). Both are valid
// YAML flow sequences. Single-quoted items additionally have their
// backslash escapes (\\, \n, \t, \r) decoded the way Python wrote them.
// A \' inside single quotes ends the YAML scalar and fails to parse; Python
// only writes it when the text contains both quote characters.

var reprEscapes = strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\n`, "\n", `\t`, "\t", `\r`, "\r")

// ParseStrings decodes a serialized list of region texts
func ParseStrings(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("parse string list %q: %w", abbreviate(s), err)
	}
	seq := &doc
	if seq.Kind == yaml.DocumentNode && len(seq.Content) == 1 {
		seq = seq.Content[0]
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parse string list %q: not a list", abbreviate(s))
	}

	out := make([]string, 0, len(seq.Content))
	for i, n := range seq.Content {
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse string list %q: item %d is not a string", abbreviate(s), i)
		}
		v := n.Value
		if n.Style == yaml.SingleQuotedStyle {
			v = reprEscapes.Replace(v)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseNumbers decodes a serialized list of reading times
func ParseNumbers(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []float64
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("parse number list %q: %w", abbreviate(s), err)
	}
	return out, nil
}

func abbreviate(s string) string {
	r := []rune(s)
	if len(r) <= 40 {
		return s
	}
	return string(r[:40]) + "..."
}
