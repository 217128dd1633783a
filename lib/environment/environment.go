// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"log/slog"
	"os"
	"sort"
)

// Env is the subset of the process environment Apply needs.
type Env interface {
	// Lookup returns the value of key and whether it is present.
	Lookup(key string) (string, bool)

	// Set assigns value to key.
	Set(key, value string) error
}

// Default is one entry of the defaults table.
type Default struct {
	Key   string
	Value string
}

// Defaults is the table of session environment defaults, applied in
// order. Search paths come first so anything started afterwards sees
// them.
var Defaults = []Default{
	{Key: "XDG_DATA_DIRS", Value: "/usr/local/share/:/usr/share/"},
	{Key: "XDG_CONFIG_DIRS", Value: "/etc/xdg"},
	{Key: "QT_QPA_PLATFORMTHEME", Value: "Hawaii"},
	{Key: "QT_QUICK_CONTROLS_STYLE", Value: "Wind"},
	{Key: "XCURSOR_THEME", Value: "hawaii"},
	{Key: "XCURSOR_SIZE", Value: "16"},
	{Key: "XDG_MENU_PREFIX", Value: "hawaii-"},
	{Key: "XDG_CURRENT_DESKTOP", Value: "X-Hawaii"},
}

// Process returns an Env backed by the real process environment.
func Process() Env { return processEnv{} }

type processEnv struct{}

func (processEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }

func (processEnv) Set(key, value string) error { return os.Setenv(key, value) }

// Apply sets every key of Defaults, then every key of extra, that is
// unset or empty in env. Keys of extra that also appear in Defaults are
// ignored. Returns the keys that were assigned, in the order they were
// assigned. A failed assignment is logged and skipped; Apply never
// fails as a whole.
func Apply(env Env, extra map[string]string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	table := make(map[string]bool, len(Defaults))
	entries := make([]Default, 0, len(Defaults)+len(extra))
	for _, entry := range Defaults {
		table[entry.Key] = true
		entries = append(entries, entry)
	}

	extraKeys := make([]string, 0, len(extra))
	for key := range extra {
		if table[key] || key == "" {
			continue
		}
		extraKeys = append(extraKeys, key)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		entries = append(entries, Default{Key: key, Value: extra[key]})
	}

	var assigned []string
	for _, entry := range entries {
		if current, ok := env.Lookup(entry.Key); ok && current != "" {
			continue
		}
		if err := env.Set(entry.Key, entry.Value); err != nil {
			logger.Warn("setting environment default failed",
				"key", entry.Key,
				"error", err,
			)
			continue
		}
		assigned = append(assigned, entry.Key)
	}

	if len(assigned) > 0 {
		logger.Debug("environment defaults applied", "keys", assigned)
	}
	return assigned
}
