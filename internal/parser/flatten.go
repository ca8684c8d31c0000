package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlattenParams turns a nested config document into dotted parameter keys,
// e.g. {"slurm": {"time": "01:00:00"}} becomes {"slurm.time": "01:00:00"}.
// Lists are rendered in YAML flow style.
func FlattenParams(doc map[string]any) (map[string]string, error) {
	out := make(map[string]string)
	if err := flatten("", doc, out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(prefix string, doc map[string]any, out map[string]string) error {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case []any:
			s, err := flowYAML(val)
			if err != nil {
				return fmt.Errorf("failed to render parameter %s: %w", key, err)
			}
			out[key] = s
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return nil
}

func flowYAML(v any) (string, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return "", err
	}
	node.Style = yaml.FlowStyle
	b, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
