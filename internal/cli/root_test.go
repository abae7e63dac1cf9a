package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "activid", cmd.Use)
	assert.Contains(t, cmd.Long, "one\nwish per invitation")
}

func TestCommandPresence(t *testing.T) {
	commands := [][]string{
		{"serve"},
		{"validate"},
		{"wish", "submit"},
		{"wish", "check"},
		{"wish", "list"},
		{"photos"},
		{"link"},
		{"test"},
	}

	for _, path := range commands {
		t.Run(path[len(path)-1], func(t *testing.T) {
			sub := findCommand(t, path...)
			require.NotNil(t, sub)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "validate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		path []string
		flag string
		def  string
	}{
		{[]string{"serve"}, "addr", ""},
		{[]string{"serve"}, "invitations", ""},
		{[]string{"wish", "submit"}, "to", ""},
		{[]string{"wish", "submit"}, "attendance", ""},
		{[]string{"wish", "list"}, "dedupe", "false"},
		{[]string{"photos"}, "all", "false"},
		{[]string{"link"}, "qr-size", "512"},
		{[]string{"link"}, "send", ""},
		{[]string{"test"}, "update", "false"},
	}

	for _, tt := range tests {
		sub := findCommand(t, tt.path...)
		f := sub.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("%v: flag --%s missing", tt.path, tt.flag)
			continue
		}
		if f.DefValue != tt.def {
			t.Errorf("%v --%s default = %q, want %q", tt.path, tt.flag, f.DefValue, tt.def)
		}
	}
}

func TestWishMessageShorthand(t *testing.T) {
	sub := findCommand(t, "wish", "submit")
	f := sub.Flags().Lookup("message")
	require.NotNil(t, f)
	assert.Equal(t, "m", f.Shorthand)
}

func TestBadConfigIsCommandError(t *testing.T) {
	_, err := execute(t, "--config", "/nonexistent/activid.yaml", "wish", "list", "wed_123")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewLoggerLevel(t *testing.T) {
	buf := &bytes.Buffer{}

	newLogger(&RootOptions{}, buf).Debug("wish store opened", "driver", "sqlite")
	assert.Empty(t, buf.String())

	newLogger(&RootOptions{Verbose: true}, buf).Debug("wish store opened", "driver", "sqlite")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "driver=sqlite")
}
