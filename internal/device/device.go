// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package device selects which accelerators the process uses.
package device

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// VisibleDevicesEnv is read by the CUDA runtime (and PJRT CUDA plugin) to limit the visible GPUs.
	VisibleDevicesEnv = "CUDA_VISIBLE_DEVICES"

	// BackendEnv selects the GoMLX backend, if not otherwise configured.
	BackendEnv = "GOMLX_BACKEND"

	// CUDABackend is the backend configuration selected when GPUs are requested.
	CUDABackend = "xla:cuda"
)

// ParseIDs parses a comma-separated list of GPU ids, e.g. "0,2".
func ParseIDs(ids string) ([]int, error) {
	var parsed []int
	for _, part := range strings.Split(ids, ",") {
		part = strings.TrimSpace(part)
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 {
			return nil, errors.Errorf("invalid GPU id %q in %q: GPU ids must be non-negative integers", part, ids)
		}
		parsed = append(parsed, id)
	}
	return parsed, nil
}

// ChangeGPU makes only the GPUs with the given ids (a comma-separated list) visible to the process,
// and selects the CUDA backend if no backend was configured in the environment.
//
// It must be called before the backend is created. It returns a function that restores the previous
// environment.
func ChangeGPU(ids string) (restore func(), err error) {
	parsed, err := ParseIDs(ids)
	if err != nil {
		return nil, err
	}
	normalized := make([]string, len(parsed))
	for ii, id := range parsed {
		normalized[ii] = strconv.Itoa(id)
	}

	restoreVisible := setEnv(VisibleDevicesEnv, strings.Join(normalized, ","))
	restoreBackend := func() {}
	if _, found := os.LookupEnv(BackendEnv); !found {
		restoreBackend = setEnv(BackendEnv, CUDABackend)
	}
	klog.V(1).Infof("Using GPUs %v (%s=%q, %s=%q)", parsed,
		VisibleDevicesEnv, os.Getenv(VisibleDevicesEnv), BackendEnv, os.Getenv(BackendEnv))
	return func() {
		restoreBackend()
		restoreVisible()
	}, nil
}

// setEnv sets the environment variable and returns a function that restores its previous state.
func setEnv(key, value string) func() {
	previous, existed := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	return func() {
		if existed {
			_ = os.Setenv(key, previous)
		} else {
			_ = os.Unsetenv(key)
		}
	}
}
