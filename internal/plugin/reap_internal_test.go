// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitStatus_NoState(t *testing.T) {
	assert.Equal(t, statusIndeterminate, waitStatus(nil, nil),
		"no state and no error means the worker was never matched")
}

func TestWaitStatus_WaitError(t *testing.T) {
	err := errors.New("waitid: no child processes")
	assert.Equal(t, statusIndeterminate, waitStatus(nil, err))
}
