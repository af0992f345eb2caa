package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadTabular reads a Tabular policy from a JSON file of the form
// {"default": 0.1, "probs": {"s0": {"0": 0.7, "1": 0.3}}}.
func LoadTabular(path string) (*Tabular, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy table %s: %w", path, err)
	}
	var p Tabular
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy table %s: %w", path, err)
	}
	return &p, nil
}
