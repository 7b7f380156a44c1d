package eval

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema constrains only the outer shape of a record; field contents are
// checked while decoding. A missing query reads as the empty query.
const recordSchema = `{
	"type": "object",
	"properties": {
		"query": {"type": "object"}
	}
}`

var recordSchemaLoader = gojsonschema.NewStringLoader(recordSchema)

// ValidateRecord checks that raw is an object whose query, if present, is an
// object.
func ValidateRecord(raw []byte) error {
	result, err := gojsonschema.Validate(recordSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("invalid record: %s", strings.Join(errs, "; "))
	}
	return nil
}
