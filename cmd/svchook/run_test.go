// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_RequiresHookArgument(t *testing.T) {
	_, err := runCommand(t, "run", "--plugin-dir="+t.TempDir())
	assert.Error(t, err)
}

func TestRunCommand_PassesHookAndValue(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "args")
	writePluginScript(t, dir, "10-record", `echo "$1 $2" > `+marker)

	_, err := runCommand(t, "run", "--plugin-dir="+dir, "hook.start", "myservice")
	require.NoError(t, err)

	got, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "hook.start myservice\n", string(got))
}

func TestRunCommand_DoesNotPropagatePluginExitStatus(t *testing.T) {
	dir := t.TempDir()
	writePluginScript(t, dir, "10-fail", "exit 3")

	out, err := runCommand(t, "run", "--plugin-dir="+dir, "hook.stop")
	require.NoError(t, err)

	assert.Contains(t, out, "10-fail\texit=3")
}

func TestRunCommand_EmptyDirectoryIsNotAnError(t *testing.T) {
	_, err := runCommand(t, "run", "--plugin-dir="+t.TempDir(), "hook.start", "svc")
	assert.NoError(t, err)
}
