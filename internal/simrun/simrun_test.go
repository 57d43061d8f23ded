package simrun

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecArgs(t *testing.T) {
	spec := Spec{
		Binary:    "./run",
		Ini:       "omnetpp.ini",
		UI:        "Cmdenv",
		Config:    "HighTraffic",
		RunNumber: 17,
		ExtraArgs: []string{"--cmdenv-redirect-output=false"},
	}

	assert.Equal(t, []string{
		"-u", "Cmdenv",
		"-c", "HighTraffic",
		"-r", "17",
		"--cmdenv-redirect-output=false",
		"-f", "omnetpp.ini",
	}, spec.Args())
	assert.Equal(t, "HighTraffic#17", spec.String())
}

func TestSpecArgsWithoutIni(t *testing.T) {
	spec := Spec{UI: "Cmdenv", Config: "General", RunNumber: 0}
	assert.Equal(t, []string{"-u", "Cmdenv", "-c", "General", "-r", "0"}, spec.Args())
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell environment")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireUnix(t)

	logPath := filepath.Join(t.TempDir(), "logs", "General_0.log")
	spec := Spec{
		Binary:    "echo",
		UI:        "Cmdenv",
		Config:    "General",
		RunNumber: 3,
		LogPath:   logPath,
	}

	require.NoError(t, ExecRunner{}.Run(context.Background(), spec))

	out, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "-c General -r 3")
}

func TestExecRunnerFailure(t *testing.T) {
	requireUnix(t)

	spec := Spec{Binary: "false", UI: "Cmdenv", Config: "General"}
	err := ExecRunner{}.Run(context.Background(), spec)
	require.Error(t, err)
	assert.ErrorContains(t, err, "run General#0")
}

func TestExecRunnerCanceled(t *testing.T) {
	requireUnix(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := Spec{Binary: "sleep", UI: "Cmdenv", Config: "General", ExtraArgs: []string{"10"}}
	err := ExecRunner{}.Run(ctx, spec)
	assert.ErrorIs(t, err, context.Canceled)
}
