package planner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverrides reads engine config overrides from a YAML file. An empty
// path yields no overrides.
func LoadOverrides(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine overrides: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode engine overrides %s: %w", path, err)
	}
	for k, v := range out {
		out[k] = stringKeys(v)
	}
	return out, nil
}

// stringKeys rewrites mappings with non-string keys, such as the integer
// levels of LEVEL_TIME_MULTIPLIERS, into string-keyed maps so the
// overrides survive the JSON round trip of the engine config.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}
