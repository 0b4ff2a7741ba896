package customizer_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/customizer"
	"github.com/mailbridge/mailbridge/pkg/models"
)

func TestDefaultMaster_HasAllNodeTypes(t *testing.T) {
	t.Parallel()

	master := customizer.DefaultMaster()

	for _, nodeType := range []models.NodeType{
		models.NodeTypeTrigger,
		models.NodeTypeCategorizer,
		models.NodeTypeSwitch,
		models.NodeTypeLabel,
		models.NodeTypeNotify,
	} {
		assert.NotNil(t, master.NodeByType(nodeType), "missing node type %s", nodeType)
	}
}

func TestLoadMaster_RoundTripsDefault(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(customizer.DefaultMaster())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "master.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	loaded, err := customizer.LoadMaster(path)
	require.NoError(t, err)

	assert.Equal(t, "Inbox Automation", loaded.Name)
	assert.Len(t, loaded.Nodes, 5)
}

func TestLoadMaster_RejectsInvalidTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing nodes", body: `{"name": "Broken Template"}`},
		{name: "empty nodes", body: `{"name": "Broken Template", "nodes": []}`},
		{name: "unknown node type", body: `{"name": "Broken Template", "nodes": [{"id": "x", "name": "X", "type": "webhook"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "master.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := customizer.LoadMaster(path)
			require.Error(t, err)
		})
	}
}

func TestLoadMaster_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := customizer.LoadMaster(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
