package models

// NodeType identifies what a workflow node does when the external engine runs it.
type NodeType string

const (
	NodeTypeTrigger     NodeType = "trigger"     // Mailbox polling entry point
	NodeTypeCategorizer NodeType = "categorizer" // Keyword-based classification code
	NodeTypeSwitch      NodeType = "switch"      // Branches on the assigned category
	NodeTypeLabel       NodeType = "label"       // Applies a mailbox label
	NodeTypeNotify      NodeType = "notify"      // Sends the team notification
)

// WorkflowNode is a node instance inside a workflow definition. Parameters are
// engine-specific and passed through opaquely, except where the customizer
// rewrites them.
type WorkflowNode struct {
	ID         string         `json:"id"         validate:"required"`
	Name       string         `json:"name"       validate:"required,min=1"`
	Type       NodeType       `json:"type"       validate:"required"`
	Parameters map[string]any `json:"parameters"`
	PositionX  int            `json:"position_x"`
	PositionY  int            `json:"position_y"`
	Disabled   bool           `json:"disabled,omitempty"`
}

// Connection is a named directed edge between two nodes.
type Connection struct {
	SourceNode string `json:"source_node" validate:"required"`
	TargetNode string `json:"target_node" validate:"required"`
	Output     string `json:"output,omitempty"` // Named output on the source, e.g. a switch branch
}

// WorkflowDefinition is the node graph submitted to the external engine. It is
// produced fresh per deployment by the template customizer and never mutated
// in place: a config change yields a new definition and a new deployment.
type WorkflowDefinition struct {
	Name        string          `json:"name"        validate:"required,min=3"`
	Nodes       []*WorkflowNode `json:"nodes"       validate:"required,min=1,dive"`
	Connections []*Connection   `json:"connections" validate:"dive"`
	Settings    map[string]any  `json:"settings,omitempty"`
}

// NodeByType returns the first node of the given type, or nil.
func (w *WorkflowDefinition) NodeByType(t NodeType) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.Type == t {
			return node
		}
	}

	return nil
}
