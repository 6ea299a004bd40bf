package rules

import (
	"fmt"
	"strings"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// actionConfigSchemas maps each action type to the JSON schema its opaque
// action_config must satisfy. The set is closed; unknown action types are
// rejected before schema lookup.
var actionConfigSchemas = map[models.ActionType]map[string]any{
	models.ActionTypeMessage: {
		"type": "object",
		"properties": map[string]any{
			"template":     map[string]any{"type": "string"},
			"phone_column": map[string]any{"type": "string"},
		},
		"required": []any{"template"},
	},
	models.ActionTypeEmail: {
		"type": "object",
		"properties": map[string]any{
			"subject":      map[string]any{"type": "string"},
			"template_id":  map[string]any{"type": "string"},
			"email_column": map[string]any{"type": "string"},
		},
		"required": []any{"subject"},
	},
	models.ActionTypeGroupInvite: {
		"type": "object",
		"properties": map[string]any{
			"group_name":   map[string]any{"type": "string"},
			"phone_column": map[string]any{"type": "string"},
		},
		"required": []any{"group_name"},
	},
}

// ValidateActionConfig checks an action_config payload against the schema
// for its action type.
func ValidateActionConfig(actionType models.ActionType, config map[string]any) error {
	schema, ok := actionConfigSchemas[actionType]
	if !ok {
		return fmt.Errorf("unknown action type %q", actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid action config: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
