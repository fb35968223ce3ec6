package snapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/schemawatch/schemawatch/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *schema.Snapshot {
	return &schema.Snapshot{
		Schemas: []schema.Schema{
			{
				Name: "public",
				Tables: []schema.Table{
					{
						Name: "users",
						Columns: []schema.Column{
							{Name: "id", DataType: "BIGINT", Nullable: false},
						},
						Constraints: []schema.Constraint{
							{Name: "users_pkey", Type: "PRIMARY KEY", Columns: []string{"id"}},
						},
					},
				},
			},
		},
	}
}

func TestIsSnapshotFile(t *testing.T) {
	assert.True(t, IsSnapshotFile("snap.json"))
	assert.True(t, IsSnapshotFile("snap.YAML"))
	assert.True(t, IsSnapshotFile("dir/snap.yml"))
	assert.False(t, IsSnapshotFile("snap.sql"))
	assert.False(t, IsSnapshotFile("snapjson"))
}

func TestSaveLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, Save(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dataType": "BIGINT"`)
	assert.True(t, data[len(data)-1] == '\n', "json files end with a newline")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), loaded)
}

func TestSaveLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.yaml")
	require.NoError(t, Save(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dataType: BIGINT", "yaml keys use the canonical wire names")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), loaded)
}

func TestLoadNormalizesRawPayloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.json")
	payload := `{"billing": {"tables": [{"name": "invoices", "primaryKey": ["id"]}]}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Schemas, 1)
	assert.Equal(t, "billing", loaded.Schemas[0].Name)
	require.Len(t, loaded.Schemas[0].Tables[0].Constraints, 1)
	assert.Equal(t, "PRIMARY KEY", loaded.Schemas[0].Tables[0].Constraints[0].Type)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse json snapshot")

	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte(":\n\t-"), 0o644))
	_, err = Load(badYAML)
	assert.ErrorContains(t, err, "parse yaml snapshot")
}
