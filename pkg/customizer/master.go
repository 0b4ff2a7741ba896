package customizer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// masterTemplateSchema validates externally supplied master templates before
// they are customized. Malformed templates are an operator error caught at
// load time, not a runtime failure.
const masterTemplateSchema = `{
	"type": "object",
	"required": ["name", "nodes"],
	"properties": {
		"name": {"type": "string", "minLength": 3},
		"nodes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name", "type"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"type": {"enum": ["trigger", "categorizer", "switch", "label", "notify"]},
					"parameters": {"type": "object"}
				}
			}
		},
		"connections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source_node", "target_node"],
				"properties": {
					"source_node": {"type": "string"},
					"target_node": {"type": "string"},
					"output": {"type": "string"}
				}
			}
		},
		"settings": {"type": "object"}
	}
}`

// DefaultMaster returns the built-in email automation template: poll mailbox,
// categorize, branch on category, label, notify the team.
func DefaultMaster() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name: "Inbox Automation",
		Nodes: []*models.WorkflowNode{
			{
				ID:   "mail-trigger",
				Name: "New Email",
				Type: models.NodeTypeTrigger,
				Parameters: map[string]any{
					"poll_interval_minutes": 5,
					"mailbox":               "INBOX",
				},
			},
			{
				ID:   "categorize",
				Name: "Categorize Email",
				Type: models.NodeTypeCategorizer,
				Parameters: map[string]any{
					"code": "item.category = \"" + FallbackCategory + "\";\nreturn item;\n",
				},
				PositionX: 200,
			},
			{
				ID:   "route",
				Name: "Route by Category",
				Type: models.NodeTypeSwitch,
				Parameters: map[string]any{
					"field":    "category",
					"branches": []string{FallbackCategory},
				},
				PositionX: 400,
			},
			{
				ID:   "apply-label",
				Name: "Apply Label",
				Type: models.NodeTypeLabel,
				Parameters: map[string]any{
					"label_field": "category",
				},
				PositionX: 600,
			},
			{
				ID:   "notify-team",
				Name: "Notify Team",
				Type: models.NodeTypeNotify,
				Parameters: map[string]any{
					"recipients": "",
					"template":   "new-categorized-email",
				},
				PositionX: 800,
			},
		},
		Connections: []*models.Connection{
			{SourceNode: "mail-trigger", TargetNode: "categorize"},
			{SourceNode: "categorize", TargetNode: "route"},
			{SourceNode: "route", TargetNode: "apply-label"},
			{SourceNode: "apply-label", TargetNode: "notify-team"},
		},
		Settings: map[string]any{
			"timezone": "UTC",
		},
	}
}

// LoadMaster reads and validates a master template from a JSON file,
// for operators that override the built-in template.
func LoadMaster(path string) (*models.WorkflowDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master template %s: %w", path, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(masterTemplateSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate master template: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("master template %s is invalid: %v", path, details)
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(raw, &definition); err != nil {
		return nil, fmt.Errorf("failed to parse master template %s: %w", path, err)
	}

	return &definition, nil
}
