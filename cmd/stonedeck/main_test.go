package main

import (
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainHelpListsCommands(t *testing.T) {
	output, err := runMain(t, "--help")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "Usage:")
	require.Contains(t, string(output), "-pluginUUID UUID")
	require.Contains(t, string(output), "scenes CAMPAIGN_ID")
}

func TestMainVersion(t *testing.T) {
	output, err := runMain(t, "--version")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "stonedeck")
}

func TestMainUsageErrorsExitTwo(t *testing.T) {
	for _, args := range [][]string{
		{"not-a-command"},
		{"scenes"},
		{"-port", "not-a-port"},
	} {
		output, err := runMain(t, args...)

		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr), "%v: %s", args, output)
		require.Equal(t, 2, exitErr.ExitCode(), "%v", args)
		require.Contains(t, string(output), "error:")
	}
}

func TestMainHostLaunchWithoutPortFails(t *testing.T) {
	output, err := runMain(t, "-pluginUUID", "U1", "-registerEvent", "registerPlugin")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), string(output))
	require.Equal(t, 1, exitErr.ExitCode())
	require.Contains(t, string(output), "host port is not set")
}

// TestMainHelperProcess runs main() when re-executed by runMain.
func TestMainHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	dashIndex := -1
	for i, arg := range args {
		if arg == "--" {
			dashIndex = i
			break
		}
	}

	os.Args = []string{"stonedeck"}
	if dashIndex >= 0 && dashIndex+1 < len(args) {
		os.Args = append(os.Args, args[dashIndex+1:]...)
	}

	main()
}

func runMain(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	cmdArgs := append([]string{"-test.run=TestMainHelperProcess", "--"}, args...)
	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"XDG_STATE_HOME="+t.TempDir(),
		"XDG_CONFIG_HOME="+t.TempDir(),
		"XDG_RUNTIME_DIR="+t.TempDir(),
	)
	return cmd.CombinedOutput()
}
