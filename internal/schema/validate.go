// Package schema validates collaborator input documents against their
// versioned JSON Schemas before they enter the scoring pipeline. The schemas
// are the contract with the upstream OCR/NER and classification services;
// validating here keeps malformed collaborator output from surfacing as
// scoring anomalies.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema names.
const (
	EntitiesSchema       = "entities"
	ClassificationSchema = "classification"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

// compile loads and compiles the embedded schemas once.
func compile() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*jsonschema.Schema)
		for _, name := range []string{EntitiesSchema, ClassificationSchema} {
			path := fmt.Sprintf("schemas/%s.schema.json", name)
			data, err := schemaFS.ReadFile(path)
			if err != nil {
				compileErr = fmt.Errorf("read embedded schema %s: %w", name, err)
				return
			}

			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(path, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
			schema, err := compiler.Compile(path)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
	})
	return compiled, compileErr
}

// Validate checks a raw JSON document against the named schema.
func Validate(name string, document []byte) error {
	schemas, err := compile()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var instance any
	if err := json.Unmarshal(document, &instance); err != nil {
		return fmt.Errorf("parse %s document: %w", name, err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%s document invalid: %w", name, err)
	}
	return nil
}

// ValidateEntities checks an extracted-entities document.
func ValidateEntities(document []byte) error {
	return Validate(EntitiesSchema, document)
}

// ValidateClassification checks a classification document.
func ValidateClassification(document []byte) error {
	return Validate(ClassificationSchema, document)
}
