// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() *context.Context {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		"batch_size":             64,
		"learning_rate":          1e-4,
		"plots":                  true,
		"optimizer":              "adam",
		"conv_channels":          []int{64, 128},
		"learning_rate_schedule": "10:1e-5",
	})
	return ctx
}

func TestApplyFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
batch_size: 32
learning_rate: 0.001
plots: false
conv_channels: [8, 16, 32]
`), 0644))
	ctx := newContext()
	paramsSet, err := Apply(ctx, configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"batch_size", "conv_channels", "learning_rate", "plots"}, paramsSet)
	assert.Equal(t, 32, context.GetParamOr(ctx, "batch_size", 0))
	assert.Equal(t, 0.001, context.GetParamOr(ctx, "learning_rate", 0.0))
	assert.False(t, context.GetParamOr(ctx, "plots", true))
	assert.Equal(t, []int{8, 16, 32}, context.GetParamOr(ctx, "conv_channels", []int(nil)))
	assert.Equal(t, "adam", context.GetParamOr(ctx, "optimizer", ""))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvName("optimizer"), "sgd")
	t.Setenv(EnvName("batch_size"), "16")
	ctx := newContext()
	paramsSet, err := Apply(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"batch_size", "optimizer"}, paramsSet)
	assert.Equal(t, "sgd", context.GetParamOr(ctx, "optimizer", ""))
	assert.Equal(t, 16, context.GetParamOr(ctx, "batch_size", 0))
}

func TestApplyErrors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"not_a_param": 1}`), 0644))
	_, err := Apply(newContext(), unknown)
	require.ErrorContains(t, err, "not_a_param")

	_, err = Apply(newContext(), filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
