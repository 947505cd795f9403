package confloader

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawYAML is a koanf parser that keeps every YAML scalar as the text written
// in the file. "1.10", "0755" and "1e3" stay as written instead of becoming
// numbers. Nulls become nil. Mappings and sequences keep their shape.
type RawYAML struct{}

// RawYAMLParser returns a RawYAML parser.
func RawYAMLParser() *RawYAML {
	return &RawYAML{}
}

// Unmarshal parses b into a nested map.
func (p *RawYAML) Unmarshal(b []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return map[string]any{}, nil
	}

	v, err := rawValue(doc.Content[0])
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, errors.New("yaml: top level must be a mapping")
	}
}

// Marshal renders o as YAML.
func (p *RawYAML) Marshal(o map[string]any) ([]byte, error) {
	return yaml.Marshal(o)
}

func rawValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return rawValue(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := rawValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return rawMapping(n)
	default:
		return nil, fmt.Errorf("yaml: unsupported node at line %d", n.Line)
	}
}

func rawMapping(n *yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(n.Content)/2)
	var merged []map[string]any

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("yaml: non-scalar key at line %d", k.Line)
		}

		if k.Tag == "!!merge" {
			m, err := mergeSources(v)
			if err != nil {
				return nil, err
			}
			merged = append(merged, m...)
			continue
		}

		val, err := rawValue(v)
		if err != nil {
			return nil, err
		}
		out[k.Value] = val
	}

	// Explicit keys win over merged ones.
	for _, m := range merged {
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out, nil
}

func mergeSources(v *yaml.Node) ([]map[string]any, error) {
	var nodes []*yaml.Node
	if v.Kind == yaml.SequenceNode {
		nodes = v.Content
	} else {
		nodes = []*yaml.Node{v}
	}

	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		val, err := rawValue(n)
		if err != nil {
			return nil, err
		}
		m, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("yaml: merge of a non-mapping at line %d", n.Line)
		}
		out = append(out, m)
	}
	return out, nil
}
