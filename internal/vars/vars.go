package vars

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFiles merges flat env files in order; later files win. Files ending
// in .yaml or .yml are read as YAML, everything else as JSON. Non-string
// values are coerced with fmt.Sprint.
func LoadFiles(paths []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		var m map[string]any
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(b, &m)
		default:
			err = json.Unmarshal(b, &m)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		for k, v := range m {
			switch x := v.(type) {
			case string:
				out[k] = x
			default:
				out[k] = fmt.Sprint(x) // coerce numbers/bools to string
			}
		}
	}
	return out, nil
}
