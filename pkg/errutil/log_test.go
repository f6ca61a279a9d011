// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svchook/svchook/pkg/errutil"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestLogError_OopsError(t *testing.T) {
	var buf bytes.Buffer
	err := oops.Code("SPAWN_FAILED").With("plugin", "envdemo").Errorf("cannot spawn worker")

	errutil.LogError(jsonLogger(&buf), "dispatch failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch failed", entry["msg"])
	assert.Equal(t, "SPAWN_FAILED", entry["code"])
	assert.Contains(t, entry["error"], "cannot spawn worker")
}

func TestLogError_PlainError(t *testing.T) {
	var buf bytes.Buffer

	errutil.LogError(jsonLogger(&buf), "load failed", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "load failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
}
