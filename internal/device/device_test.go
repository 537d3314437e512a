// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package device

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("0, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, ids)

	for _, invalid := range []string{"", "a", "1,", "-1", "0;1"} {
		_, err = ParseIDs(invalid)
		assert.Errorf(t, err, "ParseIDs(%q) should have failed", invalid)
	}
}

func TestChangeGPU(t *testing.T) {
	t.Setenv(VisibleDevicesEnv, "7")
	t.Setenv(BackendEnv, "") // Restored at the end of the test.
	require.NoError(t, os.Unsetenv(BackendEnv))

	restore, err := ChangeGPU("1, 0")
	require.NoError(t, err)
	assert.Equal(t, "1,0", os.Getenv(VisibleDevicesEnv))
	assert.Equal(t, CUDABackend, os.Getenv(BackendEnv))

	restore()
	assert.Equal(t, "7", os.Getenv(VisibleDevicesEnv))
	_, found := os.LookupEnv(BackendEnv)
	assert.False(t, found)
}

func TestChangeGPUKeepsBackend(t *testing.T) {
	t.Setenv(BackendEnv, "xla:cpu")
	restore, err := ChangeGPU("0")
	require.NoError(t, err)
	assert.Equal(t, "xla:cpu", os.Getenv(BackendEnv))
	restore()

	_, err = ChangeGPU("x")
	require.Error(t, err)
}
