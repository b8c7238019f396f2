package capability

import (
	"errors"
	"testing"
)

func TestSchemaValidator(t *testing.T) {
	schema := Schema{
		Required: []string{"query"},
		Properties: map[string]Property{
			"query": {Type: "string"},
			"limit": {Type: "integer"},
			"scope": {Type: "string", Enum: []any{"mine", "all"}},
			"tags":  {Type: "array", Items: &PropertyItems{Type: "string"}},
			"opts":  {Type: "object"},
			"exact": {Type: "boolean"},
		},
	}

	v := SchemaValidator{}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr error
	}{
		{"valid minimal", map[string]any{"query": "meetings"}, nil},
		{
			"valid full",
			map[string]any{
				"query": "meetings",
				"limit": float64(5), // JSON numbers decode as float64
				"scope": "mine",
				"tags":  []any{"work"},
				"opts":  map[string]any{"k": "v"},
				"exact": true,
			},
			nil,
		},
		{"missing required", map[string]any{"limit": 3}, ErrMissingRequiredParam},
		{"wrong string type", map[string]any{"query": 7}, ErrInvalidParamType},
		{"wrong number type", map[string]any{"query": "q", "limit": "five"}, ErrInvalidParamType},
		{"wrong bool type", map[string]any{"query": "q", "exact": "yes"}, ErrInvalidParamType},
		{"wrong array type", map[string]any{"query": "q", "tags": "work"}, ErrInvalidParamType},
		{"wrong object type", map[string]any{"query": "q", "opts": "k=v"}, ErrInvalidParamType},
		{"enum violation", map[string]any{"query": "q", "scope": "everyone"}, ErrInvalidEnumValue},
		{"unknown params allowed", map[string]any{"query": "q", "extra": 1}, nil},
		{"nil value allowed", map[string]any{"query": "q", "limit": nil}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(schema, tt.params)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResultNormalize(t *testing.T) {
	failed := &Result{Success: false}
	failed.Normalize()
	if failed.Error == "" {
		t.Error("failed result must carry an error after Normalize")
	}

	ok := &Result{Success: true, Data: "x"}
	ok.Normalize()
	if ok.Message != "" {
		t.Error("Normalize must not add a message when data is present")
	}
}
