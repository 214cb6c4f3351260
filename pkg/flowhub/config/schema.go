package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaBytes []byte

// ValidationError lists every schema violation found in a document.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid settings:\n  - " + strings.Join(e.Details, "\n  - ")
}

// Validate checks c against the settings schema. Unknown keys are allowed so
// that settings can share a document with other sections.
func Validate(c Config) error {
	doc, err := json.Marshal(c.Raw())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Details: details}
}
