package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_UnmarshalOverlaysDefaults(t *testing.T) {
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{"columns":9,"enableSearchEngine":false}`), &s))

	want := DefaultSettings()
	want.Columns = 9
	want.EnableSearchEngine = false
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestSettings_EveryDefaultKeyIsEmitted(t *testing.T) {
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{}`), &s))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	raw, err = json.Marshal(DefaultSettings())
	require.NoError(t, err)
	var defaults map[string]any
	require.NoError(t, json.Unmarshal(raw, &defaults))

	for k, v := range defaults {
		assert.Equal(t, v, got[k], k)
	}
}

func TestSettings_BackupLimit(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		limit   int
		bounded bool
		enabled bool
	}{
		{"default", DefaultSettings(), DefaultMaxBackups, true, true},
		{"disabled", Settings{MaxBackups: 0}, 0, true, false},
		{"negative falls back", Settings{MaxBackups: -1}, DefaultMaxBackups, true, true},
		{"unlimited", Settings{UnlimitedBackups: true}, 0, false, true},
		{"three", Settings{MaxBackups: 3}, 3, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, bounded := tt.s.BackupLimit()
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.bounded, bounded)
			assert.Equal(t, tt.enabled, tt.s.BackupsEnabled())
		})
	}
}

func TestNode_Unmarshal(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","type":"item","url":"https://x"}`), &n))
	assert.Equal(t, IconAuto, n.IconType)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"f","children":[]}`), &n))
	assert.True(t, n.IsFolder())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","title":"legacy"}`), &n))
	assert.Equal(t, KindItem, n.Kind)

	require.Error(t, json.Unmarshal([]byte(`{"id":"c","type":"widget"}`), &n))
}

func TestNode_HasInlineIcon(t *testing.T) {
	assert.True(t, Node{IconType: IconUpload, IconData: "data:x"}.HasInlineIcon())
	assert.True(t, Node{IconType: IconRemote, IconData: "https://x/i.png"}.HasInlineIcon())
	assert.False(t, Node{IconType: IconUpload}.HasInlineIcon())
	assert.False(t, Node{IconType: IconAuto, IconData: "x"}.HasInlineIcon())
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	d := &Document{
		SchemaVersion: SchemaVersion,
		Settings:      DefaultSettings(),
		Groups:        []Group{{ID: "g", Name: "Home", Nodes: []string{"f"}}},
		Nodes: map[string]Node{
			"f": {ID: "f", Kind: KindFolder, Children: []string{"a"}},
			"a": {ID: "a", Kind: KindItem, URL: "https://a"},
		},
		Backups: []Backup{{ID: "b1", Data: &Document{Groups: []Group{{ID: "old"}}}}},
	}
	c := d.Clone()
	require.Empty(t, cmp.Diff(d, c))

	c.Groups[0].Nodes[0] = "changed"
	c.Nodes["f"].Children[0] = "changed"
	c.Backups[0].Data.Groups[0].ID = "changed"
	c.Settings.Columns = 1

	assert.Equal(t, "f", d.Groups[0].Nodes[0])
	assert.Equal(t, "a", d.Nodes["f"].Children[0])
	assert.Equal(t, "old", d.Backups[0].Data.Groups[0].ID)
	assert.Equal(t, 6, d.Settings.Columns)
}

func TestCorruptKey(t *testing.T) {
	assert.Equal(t, "homepageData.corrupt", CorruptKey(DocumentKey))
}
