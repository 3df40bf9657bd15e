package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
)

// ErrSchemaViolation wraps every structural mismatch found by Schema.Validate.
var ErrSchemaViolation = errors.New("llm: response does not match schema")

// Schema validates model output against a JSON Schema document.
type Schema struct {
	rs *jsonschema.Schema
}

// CompileSchema parses a JSON Schema document.
func CompileSchema(doc string) (*Schema, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(doc), rs); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{rs: rs}, nil
}

// MustCompileSchema is CompileSchema for package-level schema literals.
func MustCompileSchema(doc string) *Schema {
	s, err := CompileSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks data and joins every violation into a single error.
func (s *Schema) Validate(ctx context.Context, data []byte) error {
	keyErrs, err := s.rs.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if len(keyErrs) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", ke.PropertyPath, ke.Message))
	}
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}
