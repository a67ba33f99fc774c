package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"study-backend/internal/shared/telemetry"
)

// Schema is the subset of JSON Schema the gateway understands.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Object builds an object schema. Every property is required.
func Object(props map[string]*Schema) *Schema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)
	return &Schema{Type: "object", Properties: props, Required: required}
}

// String builds a string schema, optionally restricted to enum values.
func String(description string, enum ...string) *Schema {
	return &Schema{Type: "string", Description: description, Enum: enum}
}

// PropertyNames returns the property names in sorted order.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FirstStringProperty returns the first string property by name order.
func (s *Schema) FirstStringProperty() (string, bool) {
	for _, name := range s.PropertyNames() {
		if p := s.Properties[name]; p != nil && p.Type == "string" {
			return name, true
		}
	}
	return "", false
}

// Map renders the schema as a generic JSON Schema document. Objects are closed.
func (s *Schema) Map() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	if s.Type == "object" {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.Map()
		}
		out["properties"] = props
		out["required"] = append([]string{}, s.Required...)
		out["additionalProperties"] = false
	}
	return out
}

// Validate reports the first way output departs from the schema's top-level properties.
func (s *Schema) Validate(output map[string]any) error {
	if s == nil {
		return nil
	}
	for _, name := range s.Required {
		if _, ok := output[name]; !ok {
			return fmt.Errorf("missing field %q", name)
		}
	}
	for name, prop := range s.Properties {
		raw, ok := output[name]
		if !ok || prop == nil {
			continue
		}
		if prop.Type == "string" {
			str, ok := raw.(string)
			if !ok {
				return fmt.Errorf("field %q: expected string", name)
			}
			if len(prop.Enum) > 0 && !contains(prop.Enum, str) {
				return fmt.Errorf("field %q: %q not in %s", name, str, strings.Join(prop.Enum, "|"))
			}
		}
	}
	return nil
}

// DecodeObject parses a model reply as a JSON object. Replies wrapped in a
// markdown code fence are accepted. An empty reply or a JSON null decodes to
// an empty object. Fields that are missing or do not match the schema are
// logged and left for the caller to interpret; only a reply that is not a
// JSON object is an error.
func DecodeObject(raw string, schema *Schema) (map[string]any, error) {
	trimmed := stripCodeFence(strings.TrimSpace(raw))
	out := map[string]any{}
	if trimmed == "" {
		telemetry.Warn("gateway.empty_response", nil)
		return out, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	if err := schema.Validate(out); err != nil {
		telemetry.Warn("gateway.schema_mismatch", map[string]any{"error": err})
	}
	return out, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
