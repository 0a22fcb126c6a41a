package review

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bountylab/reviewd/internal/models"
)

//go:embed review_schema.json
var reviewSchemaJSON string

var reviewSchema = jsonschema.MustCompileString("review_schema.json", reviewSchemaJSON)

// SchemaValidationError indicates the model returned a structure that
// does not conform to the ReviewResult schema. Jobs retry it up to their
// attempt budget before giving up.
type SchemaValidationError struct {
	Detail string
	Raw    string
}

func (e *SchemaValidationError) Error() string {
	return "model output failed schema validation: " + e.Detail
}

// stripFencing removes a surrounding markdown code fence, if present.
func stripFencing(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// parseResult validates raw model output against the ReviewResult schema
// and deserializes it. Any mismatch is reported as a typed
// SchemaValidationError rather than an untyped parse failure.
func parseResult(content string) (models.ReviewResult, error) {
	text := stripFencing(content)

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return models.ReviewResult{}, &SchemaValidationError{
			Detail: fmt.Sprintf("not valid JSON: %v", err),
			Raw:    content,
		}
	}

	if err := reviewSchema.Validate(doc); err != nil {
		return models.ReviewResult{}, &SchemaValidationError{
			Detail: err.Error(),
			Raw:    content,
		}
	}

	var result models.ReviewResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return models.ReviewResult{}, &SchemaValidationError{
			Detail: fmt.Sprintf("decode: %v", err),
			Raw:    content,
		}
	}
	return result, nil
}
