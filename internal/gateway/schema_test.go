package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerSchema() *Schema {
	return Object(map[string]*Schema{
		"answer":     String("The answer"),
		"confidence": String("How well the material supports the answer", "high", "medium", "low"),
	})
}

func TestObjectRequiresAllProperties(t *testing.T) {
	s := answerSchema()
	assert.Equal(t, []string{"answer", "confidence"}, s.Required)

	m := s.Map()
	assert.Equal(t, false, m["additionalProperties"])
	props := m["properties"].(map[string]any)
	conf := props["confidence"].(map[string]any)
	assert.Equal(t, []string{"high", "medium", "low"}, conf["enum"])
}

func TestFirstStringProperty(t *testing.T) {
	name, ok := Object(map[string]*Schema{"text": String("")}).FirstStringProperty()
	require.True(t, ok)
	assert.Equal(t, "text", name)

	_, ok = Object(map[string]*Schema{"pages": {Type: "integer"}}).FirstStringProperty()
	assert.False(t, ok)
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr string
	}{
		{name: "plain", raw: `{"answer":"Mitochondria","confidence":"high"}`, want: map[string]any{"answer": "Mitochondria", "confidence": "high"}},
		{name: "fenced", raw: "```json\n{\"answer\":\"Mitochondria\",\"confidence\":\"low\"}\n```", want: map[string]any{"answer": "Mitochondria", "confidence": "low"}},
		{name: "empty", raw: "  ", want: map[string]any{}},
		{name: "null", raw: "null", want: map[string]any{}},
		{name: "missing field", raw: `{"answer":"x"}`, want: map[string]any{"answer": "x"}},
		{name: "bad enum", raw: `{"answer":"x","confidence":"certain"}`, want: map[string]any{"answer": "x", "confidence": "certain"}},
		{name: "wrong type", raw: `{"answer":42,"confidence":"high"}`, want: map[string]any{"answer": float64(42), "confidence": "high"}},
		{name: "not json", raw: "Mitochondria", wantErr: "decode"},
		{name: "array", raw: `["Mitochondria"]`, wantErr: "decode"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, err := DecodeObject(tt.raw, answerSchema())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		output  map[string]any
		wantErr string
	}{
		{name: "complete", output: map[string]any{"answer": "x", "confidence": "low"}},
		{name: "missing field", output: map[string]any{"answer": "x"}, wantErr: `missing field "confidence"`},
		{name: "bad enum", output: map[string]any{"answer": "x", "confidence": "certain"}, wantErr: "not in"},
		{name: "wrong type", output: map[string]any{"answer": 42, "confidence": "high"}, wantErr: "expected string"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := answerSchema().Validate(tt.output)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStringField(t *testing.T) {
	assert.Equal(t, "  hi \n", StringField(map[string]any{"text": "  hi \n"}, "text"))
	assert.Equal(t, "", StringField(map[string]any{"text": 3}, "text"))
	assert.Equal(t, "", StringField(map[string]any{"text": nil}, "text"))
	assert.Equal(t, "", StringField(nil, "text"))
}

func TestHasText(t *testing.T) {
	assert.True(t, HasText("  hi \n"))
	assert.False(t, HasText(" \t\n"))
	assert.False(t, HasText(""))
}

func TestPlaceholderReturnsNotConfigured(t *testing.T) {
	var g Gateway = Placeholder{}
	_, err := g.Invoke(context.Background(), InvokeRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
