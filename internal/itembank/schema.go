package itembank

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// bankSchema is the JSON schema a bank file must satisfy. Dimensional
// consistency (row lengths, 2^K columns) is checked separately by New;
// the schema guards shape and entry types.
var bankSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"q_matrix": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "integer",
					"enum": []any{0, 1},
				},
			},
		},
		"latent_class_probs": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "number"},
			},
		},
	},
	"required":             []any{"q_matrix"},
	"additionalProperties": false,
}

var (
	compiledBankSchema *jsonschema.Schema
	compileOnce        sync.Once
	compileErr         error
)

// validateBankJSON checks raw bank JSON against the schema.
func validateBankJSON(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("itembank: invalid JSON: %w", err)
	}

	compileOnce.Do(func() {
		defBytes, err := json.Marshal(bankSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://itembank.json", def); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledBankSchema, compileErr = c.Compile("schema://itembank.json")
	})
	if compileErr != nil {
		return fmt.Errorf("itembank: compile schema: %w", compileErr)
	}

	if err := compiledBankSchema.Validate(parsed); err != nil {
		return fmt.Errorf("itembank: schema validation failed: %w", err)
	}
	return nil
}
