// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRun(t *testing.T) {
	for _, parallelism := range []int{-1, 0, 1, 3} {
		pool := New().SetMaxParallelism(parallelism)
		var running, maxRunning atomic.Int32
		results := make([]int, 20)
		err := pool.Run(len(results), func(ii int) error {
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			results[ii] = ii * ii
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
		for ii, v := range results {
			assert.Equal(t, ii*ii, v)
		}
		if parallelism > 0 {
			assert.LessOrEqual(t, int(maxRunning.Load()), parallelism, "parallelism=%d", parallelism)
		}
		if parallelism == 0 {
			assert.Equal(t, int32(1), maxRunning.Load())
		}
	}
}

func TestPoolRunError(t *testing.T) {
	pool := New()
	err := pool.Run(10, func(ii int) error {
		if ii == 3 || ii == 7 {
			return errors.Errorf("failed %d", ii)
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, "failed 3", err.Error())
	require.NoError(t, pool.Run(0, func(int) error { return errors.New("never called") }))
}
