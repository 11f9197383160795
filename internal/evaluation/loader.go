package evaluation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed golden_cases.json
var defaultGoldenCases []byte

// LoadGoldenCases reads a golden case set from a JSON file, or the built-in set when path is empty.
func LoadGoldenCases(path string) ([]GoldenCase, error) {
	data := defaultGoldenCases
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read golden cases file: %w", err)
		}
	}

	var cases []GoldenCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse golden cases: %w", err)
	}
	return cases, nil
}

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ValidateGoldenCases checks that all golden cases have required fields and valid values.
func ValidateGoldenCases(cases []GoldenCase) error {
	seen := make(map[string]struct{}, len(cases))

	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if c.Input == "" {
			return fmt.Errorf("case %q: missing input", c.ID)
		}
		if !c.Category.IsValid() {
			return fmt.Errorf("case %q: invalid category %q", c.ID, c.Category)
		}
		if !c.ExpectedUrgency.IsValid() {
			return fmt.Errorf("case %q: expected_urgency must be 1..5", c.ID)
		}
		if c.ExpectedSpecialty == "" {
			return fmt.Errorf("case %q: missing expected_specialty", c.ID)
		}
		if !validDifficulties[c.Difficulty] {
			return fmt.Errorf("case %q: invalid difficulty %q (must be easy/medium/hard)", c.ID, c.Difficulty)
		}
	}
	return nil
}
