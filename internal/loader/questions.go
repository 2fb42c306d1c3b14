package loader

import (
	"encoding/json"
	"fmt"

	"github.com/huangsam/cgmlens/schema"
	"gopkg.in/yaml.v3"
)

// LoadQuestions reads a YAML or JSON question file.
// The document is either one question or a mapping with a "questions" list.
func LoadQuestions(path string) ([]schema.QuestionSpec, error) {
	data, err := readFile("question", path)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(data)
	if err != nil {
		return nil, fmt.Errorf("question file %q: %w", path, err)
	}
	return questions, nil
}

// ParseQuestions decodes question documents. YAML is a superset of JSON, so both go
// through the YAML decoder and are then normalized onto the JSON field names.
func ParseQuestions(data []byte) ([]schema.QuestionSpec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid question document: %w", err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("question document must be a mapping")
	}

	var items []any
	if list, ok := root["questions"]; ok {
		items, ok = list.([]any)
		if !ok {
			return nil, fmt.Errorf("\"questions\" must be a list")
		}
	} else {
		items = []any{root}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no questions found")
	}

	questions := make([]schema.QuestionSpec, 0, len(items))
	for i, item := range items {
		normalized, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		var q schema.QuestionSpec
		if err := json.Unmarshal(normalized, &q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		questions = append(questions, q)
	}
	return questions, nil
}
