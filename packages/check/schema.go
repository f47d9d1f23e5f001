package check

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrSchemaInvalid = errors.New("schema validation failed")
)

// ValidateSchemaFile validates body against the JSON Schema stored at
// schemaPath.
func ValidateSchemaFile(body []byte, schemaPath string) error {
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	return ValidateSchema(body, schemaData)
}

// ValidateSchema validates body against schema. A body that does not
// match returns an error wrapping ErrSchemaInvalid with every violation.
func ValidateSchema(body, schema []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaInvalid, strings.Join(violations, "; "))
}
