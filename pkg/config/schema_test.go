//go:build !integration

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSchemaDescribesAllSections(t *testing.T) {
	schema, err := FileSchema()
	require.NoError(t, err)

	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Required)

	for _, prop := range []string{"template", "profile", "wasm-opt", "size-budget"} {
		_, ok := schema.Properties[prop]
		assert.True(t, ok, "schema should describe %q", prop)
	}
}

func TestFileSchemaJSONIsValidJSON(t *testing.T) {
	data, err := FileSchemaJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "wasm-slim configuration", doc["title"])
}

func TestValidateDocumentAcceptsWellFormedConfig(t *testing.T) {
	doc := []byte(`
template = "balanced"

[profile]
opt-level = "z"
strip = true

[size-budget]
max-size-kb = 500
`)
	assert.NoError(t, ValidateDocument(doc))
}

func TestValidateDocumentAcceptsEmptyConfig(t *testing.T) {
	assert.NoError(t, ValidateDocument([]byte("")))
}

func TestValidateDocumentRejectsWrongTypes(t *testing.T) {
	doc := []byte(`
[size-budget]
max-size-kb = "five hundred"
`)
	err := ValidateDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config does not match schema")
}

func TestValidateDocumentRejectsUnknownSections(t *testing.T) {
	doc := []byte(`
[not-a-real-section]
value = 1
`)
	err := ValidateDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config does not match schema")
}

func TestValidateDocumentRejectsInvalidTOML(t *testing.T) {
	err := ValidateDocument([]byte("[broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse .wasm-slim.toml")
}
