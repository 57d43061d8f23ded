package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	assert.NoError(t, setupLogger("debug", "text"))
	assert.NoError(t, setupLogger("warn", "json"))
	assert.ErrorContains(t, setupLogger("loud", "text"), "invalid log level")
	assert.ErrorContains(t, setupLogger("info", "xml"), "invalid log format")
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "platoonbench version")
}

func TestPlanCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "omnetpp.ini"), `[General]
repeat = 2
output-vector-file = "${resultdir}/${configname}_${repetition}.vec"

[Config HighTraffic]
*.node[*].scenario.controller = ${controller = "ACC", "CACC"}
`)
	writeFile(t, filepath.Join(dir, "campaign.hcl"), `
simulator {
  binary = "./run"
  ini    = "omnetpp.ini"
}

scenario "HighTraffic" {}
`)

	out := execute(t, "plan", "--campaign", filepath.Join(dir, "campaign.hcl"))
	assert.Contains(t, out, "4 runs planned")
	assert.Contains(t, out, "results/HighTraffic_0.vec")
	assert.Contains(t, out, "controller=")
}

func TestPlanCmdMissingCampaign(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"plan", "--campaign", filepath.Join(t.TempDir(), "nope.hcl")})
	assert.Error(t, root.Execute())
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
