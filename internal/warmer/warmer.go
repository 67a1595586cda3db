//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

// Package warmer keeps server functions of the site warm. It builds the
// list of warming targets from the configuration and invokes them with the
// payload recognized by OpenNext servers.
package warmer

import (
	"encoding/json"
	"sort"
)

const (
	DefaultSchedule    = "rate(5 minutes)"
	DefaultConcurrency = 1
)

// Environment variable carrying targets to the warmer function
const EnvWarmParams = "WARM_PARAMS"

// Function specific warming config
type Function struct {
	Enabled     *bool `yaml:"enabled,omitempty"`
	Concurrency *int  `yaml:"concurrency,omitempty" validate:"omitempty,min=1"`
}

// Config of the warmer
type Config struct {
	Enabled     bool                `yaml:"enabled"`
	Schedule    string              `yaml:"schedule,omitempty"`
	Concurrency int                 `yaml:"concurrency,omitempty" validate:"omitempty,min=1"`
	Functions   map[string]Function `yaml:"functions,omitempty" validate:"dive"`
	Payload     map[string]any      `yaml:"payload,omitempty"`
}

// Resolve fills defaults
func (c Config) Resolve() Config {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}

	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}

	return c
}

// Warms tells if the function identified by key is warmed, functions are
// warmed unless explicitly disabled.
func (c Config) Warms(key string) bool {
	spec, has := c.Functions[key]
	return !has || spec.Enabled == nil || *spec.Enabled
}

// Target is a function to warm, encoded as element of WARM_PARAMS
type Target struct {
	Function    string `json:"function"`
	Concurrency int    `json:"concurrency"`
}

// Targets builds the warming targets from functions, a map of function key
// (origin name) to deployed function name. Functions are warmed unless
// explicitly disabled. Targets are ordered by function key.
func Targets(functions map[string]string, cfg Config) []Target {
	cfg = cfg.Resolve()

	keys := make([]string, 0, len(functions))
	for key := range functions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seq := make([]Target, 0, len(keys))
	for _, key := range keys {
		if !cfg.Warms(key) {
			continue
		}

		concurrency := cfg.Concurrency
		if spec, has := cfg.Functions[key]; has && spec.Concurrency != nil {
			concurrency = *spec.Concurrency
		}

		seq = append(seq, Target{Function: functions[key], Concurrency: concurrency})
	}

	return seq
}

// DecodeTargets parses WARM_PARAMS
func DecodeTargets(raw string) ([]Target, error) {
	var seq []Target
	if err := json.Unmarshal([]byte(raw), &seq); err != nil {
		return nil, err
	}

	return seq, nil
}
