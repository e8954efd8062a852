package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, "dance_school.db", c.DBPath)
	assert.Equal(t, "30 22 * * *", c.EODSchedule)
	assert.Equal(t, 1, c.UndoDepth)
	assert.False(t, c.RemindersEnabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STUDIO_DB_PATH", "/tmp/x.db")
	t.Setenv("STUDIO_UNDO_DEPTH", "5")
	t.Setenv("STUDIO_REMINDERS_ENABLED", "true")

	c, err := FromViper(New())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", c.DBPath)
	assert.Equal(t, 5, c.UndoDepth)
	assert.True(t, c.RemindersEnabled)
}

func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "studio.yaml")
	require.NoError(t, os.WriteFile(file, []byte("addr: \":9000\"\nundo_depth: 0\n"), 0o644))

	c, err := Load(New(), file)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 1, c.UndoDepth, "depth is clamped to one")

	_, err = Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FlagBeatsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "studio.yaml")
	require.NoError(t, os.WriteFile(file, []byte("addr: \":9000\"\ndb_path: file.db\n"), 0o644))

	fs := pflag.NewFlagSet("studio", pflag.ContinueOnError)
	fs.String("addr", "", "")
	require.NoError(t, fs.Parse([]string{"--addr", ":7000"}))
	v := New()
	require.NoError(t, v.BindPFlag("addr", fs.Lookup("addr")))

	c, err := Load(v, file)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Addr)
	assert.Equal(t, "file.db", c.DBPath)
}

func TestToday(t *testing.T) {
	c := Config{Timezone: "Nowhere/Atlantis"}
	d := c.Today()
	assert.Zero(t, d.Hour())
	assert.Equal(t, "UTC", d.Location().String())
}
