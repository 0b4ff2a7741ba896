// Package customizer transforms a user's business configuration into a
// concrete workflow definition for the external engine.
package customizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mailbridge/mailbridge/pkg/models"
)

// FallbackCategory receives mail that matches no configured category.
const FallbackCategory = "General"

// Customize produces a workflow definition for one user from the master
// template and the user's automation config. It is a pure function: same
// inputs always produce the same definition (the workflow name embeds the
// user id, nothing else varies). The master template is never mutated.
//
// Label mappings are carried in the config snapshot but are not yet wired
// into the generated logic.
func Customize(master *models.WorkflowDefinition, userID string, config models.AutomationConfig) (*models.WorkflowDefinition, error) {
	if master == nil {
		return nil, fmt.Errorf("master template is nil")
	}

	definition, err := deepCopy(master)
	if err != nil {
		return nil, fmt.Errorf("failed to copy master template: %w", err)
	}

	definition.Name = fmt.Sprintf("%s [%s]", master.Name, userID)

	if len(config.BusinessCategories) > 0 {
		if err := rewriteCategorizer(definition, config.BusinessCategories); err != nil {
			return nil, err
		}

		rewriteSwitch(definition, config.BusinessCategories)
	}

	if len(config.TeamMembers) > 0 {
		rewriteNotification(definition, config)
	}

	return definition, nil
}

// rewriteCategorizer regenerates the classification code node: an ordered
// if/else-if chain over the configured categories. Order follows the input
// array, so the first matching category wins and tie-breaks are
// caller-controlled.
func rewriteCategorizer(definition *models.WorkflowDefinition, categories []models.BusinessCategory) error {
	node := definition.NodeByType(models.NodeTypeCategorizer)
	if node == nil {
		return fmt.Errorf("master template has no categorizer node")
	}

	var code strings.Builder

	code.WriteString("const text = ((item.subject || '') + ' ' + (item.body || '')).toLowerCase();\n")

	for i, category := range categories {
		keywords := keywordsFor(category.Name)

		conditions := make([]string, 0, len(keywords))
		for _, keyword := range keywords {
			conditions = append(conditions, fmt.Sprintf("text.includes(%q)", keyword))
		}

		branch := "} else if"
		if i == 0 {
			branch = "if"
		}

		fmt.Fprintf(&code, "%s (%s) {\n  item.category = %q;\n", branch, strings.Join(conditions, " || "), category.Name)
	}

	fmt.Fprintf(&code, "} else {\n  item.category = %q;\n}\nreturn item;\n", FallbackCategory)

	if node.Parameters == nil {
		node.Parameters = make(map[string]any)
	}

	node.Parameters["code"] = code.String()

	return nil
}

// rewriteSwitch aligns the branch list of the switch node with the
// configured categories plus the fallback.
func rewriteSwitch(definition *models.WorkflowDefinition, categories []models.BusinessCategory) {
	node := definition.NodeByType(models.NodeTypeSwitch)
	if node == nil {
		return
	}

	branches := make([]string, 0, len(categories)+1)
	for _, category := range categories {
		branches = append(branches, category.Name)
	}

	branches = append(branches, FallbackCategory)

	if node.Parameters == nil {
		node.Parameters = make(map[string]any)
	}

	node.Parameters["branches"] = branches
}

// rewriteNotification replaces the notification target list with the
// comma-joined emails of team members that opted in.
func rewriteNotification(definition *models.WorkflowDefinition, config models.AutomationConfig) {
	node := definition.NodeByType(models.NodeTypeNotify)
	if node == nil {
		return
	}

	emails := config.NotifiedEmails()
	if len(emails) == 0 {
		return
	}

	if node.Parameters == nil {
		node.Parameters = make(map[string]any)
	}

	node.Parameters["recipients"] = strings.Join(emails, ",")
}

func deepCopy(definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	encoded, err := json.Marshal(definition)
	if err != nil {
		return nil, err
	}

	var copied models.WorkflowDefinition
	if err := json.Unmarshal(encoded, &copied); err != nil {
		return nil, err
	}

	return &copied, nil
}
