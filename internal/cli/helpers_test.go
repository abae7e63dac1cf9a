package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testInvitations = `
package invitations

invitation: wed_123: {
	template: "jupiter"
	couple: bride: name: "Ayu Lestari"
	couple: groom: name: "Budi Santoso"
	events: [{
		title: "Akad Nikah"
		start: "2026-12-12T09:00:00+07:00"
		venue: "Masjid Agung"
	}]
	photos: pool: ["a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg", "g.jpg"]
	photos: background: 3
}
`

// testEnv is a config file pointing at a temp sqlite store and a temp
// invitations directory.
type testEnv struct {
	dir        string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	invDir := filepath.Join(dir, "invitations")
	require.NoError(t, os.MkdirAll(invDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(invDir, "invitations.cue"), []byte(testInvitations), 0644))

	cfg := fmt.Sprintf(`
http:
  base_url: https://activid.test
invitations_dir: %s
store:
  driver: sqlite
  sqlite_path: %s
photos:
  base_url: https://cdn.activid.test/photos
`, invDir, filepath.Join(dir, "data", "wishes.db"))
	configPath := filepath.Join(dir, "activid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))

	return &testEnv{dir: dir, configPath: configPath}
}

// addInvitations writes an extra CUE file into the invitations directory.
func (e *testEnv) addInvitations(t *testing.T, name, src string) {
	t.Helper()
	path := filepath.Join(e.dir, "invitations", name)
	require.NoError(t, os.WriteFile(path, []byte("package invitations\n"+src), 0644))
}

// run executes the root command with args and returns stdout and the error.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", e.configPath}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func findCommand(t *testing.T, path ...string) *cobra.Command {
	t.Helper()
	sub, _, err := NewRootCommand().Find(path)
	require.NoError(t, err)
	return sub
}
