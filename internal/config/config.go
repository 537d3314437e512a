// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config loads hyperparameters from a configuration file and from the environment into
// a context.
package config

import (
	"slices"
	"strings"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix of the environment variables that set hyperparameters: e.g. RELEMBED_BATCH_SIZE=32.
const EnvPrefix = "RELEMBED"

// Apply sets the root scope hyperparameters of ctx from the configuration file in configPath (any format
// supported by viper: yaml, json, toml, ...), and then from environment variables prefixed with EnvPrefix.
// If configPath is empty, only the environment is read.
//
// Only hyperparameters already present in the context can be set, and values are converted to the type
// of their current value. It returns the names of the parameters set.
func Apply(ctx *context.Context, configPath string) (paramsSet []string, err error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err = v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read configuration from %q", configPath)
		}
	}

	current := make(map[string]any)
	ctx.EnumerateParams(func(scope, key string, value any) {
		if scope == context.RootScope {
			current[key] = value
		}
	})
	for _, key := range v.AllKeys() {
		if _, found := current[key]; !found {
			return nil, errors.Errorf("configuration %q sets unknown hyperparameter %q", configPath, key)
		}
	}

	keys := make([]string, 0, len(current))
	for key := range current {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !v.IsSet(key) {
			continue
		}
		var value any
		switch current[key].(type) {
		case int:
			value = v.GetInt(key)
		case int64:
			value = v.GetInt64(key)
		case float64:
			value = v.GetFloat64(key)
		case bool:
			value = v.GetBool(key)
		case string:
			value = v.GetString(key)
		case []int:
			value = v.GetIntSlice(key)
		case []string:
			value = v.GetStringSlice(key)
		default:
			return nil, errors.Errorf("hyperparameter %q of type %T can't be set from a configuration", key, current[key])
		}
		ctx.SetParam(key, value)
		paramsSet = append(paramsSet, key)
	}
	return paramsSet, nil
}

// EnvName returns the environment variable that sets the hyperparameter key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
