package config

import (
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/google/jsonschema-go/jsonschema"
	jsvalidate "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaResourceName = ".wasm-slim.schema.json"

// GenerateSchema reflects a JSON schema from a Go type. Used for the config
// file schema and for MCP tool output schemas.
func GenerateSchema[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return schema, nil
}

// FileSchema returns the JSON schema describing .wasm-slim.toml.
func FileSchema() (*jsonschema.Schema, error) {
	schema, err := GenerateSchema[ConfigFile]()
	if err != nil {
		return nil, err
	}
	schema.Title = "wasm-slim configuration"
	schema.Description = "Schema for the .wasm-slim.toml project configuration file"
	// Every section is optional; missing keys fall back to template defaults.
	// Unknown sections are rejected so typos surface during validation.
	schema.Required = nil
	schema.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	return schema, nil
}

// FileSchemaJSON renders the config file schema as indented JSON.
func FileSchemaJSON() ([]byte, error) {
	schema, err := FileSchema()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render schema: %w", err)
	}
	return data, nil
}

// ValidateDocument checks raw .wasm-slim.toml contents against the config
// schema without constructing a ConfigFile. Returns nil when the document
// conforms.
func ValidateDocument(tomlSource []byte) error {
	var doc map[string]any
	if err := toml.Unmarshal(tomlSource, &doc); err != nil {
		return fmt.Errorf("failed to parse .wasm-slim.toml: %w", err)
	}

	schemaJSON, err := FileSchemaJSON()
	if err != nil {
		return err
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return fmt.Errorf("failed to parse schema: %w", err)
	}

	compiler := jsvalidate.NewCompiler()
	if err := compiler.AddResource(schemaResourceName, schemaDoc); err != nil {
		return fmt.Errorf("failed to register schema: %w", err)
	}
	compiled, err := compiler.Compile(schemaResourceName)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	// Round-trip through JSON so TOML integers become plain JSON numbers.
	instanceJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	var instance any
	if err := json.Unmarshal(instanceJSON, &instance); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
