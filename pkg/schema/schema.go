// Package schema validates usage documents against embedded JSON schemas.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/agentstation/usagesync/pkg/errors"
)

//go:embed export.schema.json
var exportSchema []byte

//go:embed reconciled.schema.json
var reconciledSchema []byte

// Kind names an embedded schema.
type Kind string

const (
	// Export is the schema of a per-machine usage export.
	Export Kind = "export"
	// Reconciled is the schema of a reconciled sessions artifact.
	Reconciled Kind = "reconciled"
)

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func load() (map[Kind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Kind]*jsonschema.Schema)
		for kind, data := range map[Kind][]byte{
			Export:     exportSchema,
			Reconciled: reconciledSchema,
		} {
			compiler := jsonschema.NewCompiler()
			compiler.AssertFormat = true
			s, err := compiler.Compile(data)
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", kind, err)
				return
			}
			compiled[kind] = s
		}
	})
	return compiled, compileErr
}

// Validate checks a raw JSON document against the schema of the given kind.
func Validate(kind Kind, data []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[kind]
	if !ok {
		return &errors.NotFoundError{Resource: "schema", ID: string(kind)}
	}

	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return &errors.ValidationError{
		Field:   string(kind),
		Message: fmt.Sprintf("schema validation failed: %v", result.Errors),
	}
}

// ValidateExport checks a per-machine export document.
func ValidateExport(data []byte) error {
	return Validate(Export, data)
}

// ValidateReconciled checks a reconciled sessions artifact.
func ValidateReconciled(data []byte) error {
	return Validate(Reconciled, data)
}
