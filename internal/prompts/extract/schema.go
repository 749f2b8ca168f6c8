package extract

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/docfields/internal/fieldschema"
	"github.com/jackzampolin/docfields/internal/providers"
)

// ResponseSchemaName names the structured-output schema sent to providers.
const ResponseSchemaName = "field_extraction"

// ResponseSchema wraps the schema-derived response JSON Schema in the
// json_schema envelope providers expect.
func ResponseSchema(s *fieldschema.Schema) map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   ResponseSchemaName,
			"strict": true,
			"schema": fieldschema.ResponseJSONSchema(s),
		},
	}
}

func buildResponseFormat(s *fieldschema.Schema) (*providers.ResponseFormat, error) {
	jsonSchema, err := json.Marshal(ResponseSchema(s)["json_schema"])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response schema: %w", err)
	}
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}, nil
}
