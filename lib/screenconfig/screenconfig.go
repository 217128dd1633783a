// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package screenconfig reads the output topology used by the
// fake-screen mode.
//
// The file is JSON extended with // line comments, /* block comments */
// and trailing commas:
//
//	{
//	  "outputs": [
//	    // Laptop panel.
//	    {"name": "eDP-1", "primary": true, "mode": {"width": 1920, "height": 1080}},
//	    {"name": "HDMI-1", "position": {"x": 1920, "y": 0},
//	     "mode": {"width": 2560, "height": 1440, "refresh": 59951}, "scale": 2},
//	  ],
//	}
//
// Refresh rates are in millihertz, as Wayland reports them.
package screenconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// DefaultRefresh is the refresh rate assumed when a mode omits it.
const DefaultRefresh = 60000

// Config is a fake screen topology.
type Config struct {
	Outputs []Output `json:"outputs"`
}

// Output is one simulated output.
type Output struct {
	Name     string   `json:"name"`
	Primary  bool     `json:"primary,omitempty"`
	Position Position `json:"position"`
	Mode     Mode     `json:"mode"`
	Scale    int      `json:"scale,omitempty"`
}

// Position is the top-left corner of an output in the global
// compositor space.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Mode is an output resolution and refresh rate.
type Mode struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Refresh int `json:"refresh,omitempty"`
}

// Parse strips JSONC comments and trailing commas from data, decodes
// it, fills in defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("parsing screen configuration: %w", err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ReadFile reads and parses the configuration at path.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading screen configuration: %w", err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	hasPrimary := false
	for index := range c.Outputs {
		output := &c.Outputs[index]
		if output.Scale == 0 {
			output.Scale = 1
		}
		if output.Mode.Refresh == 0 {
			output.Mode.Refresh = DefaultRefresh
		}
		hasPrimary = hasPrimary || output.Primary
	}
	if !hasPrimary && len(c.Outputs) > 0 {
		c.Outputs[0].Primary = true
	}
}

// Validate reports every problem in the configuration.
func (c *Config) Validate() error {
	if len(c.Outputs) == 0 {
		return errors.New("screen configuration has no outputs")
	}

	var errs []error
	names := make(map[string]bool, len(c.Outputs))
	primaries := 0
	for index, output := range c.Outputs {
		label := fmt.Sprintf("output %d", index)
		if output.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else {
			label = fmt.Sprintf("output %q", output.Name)
			if names[output.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate name", label))
			}
			names[output.Name] = true
		}
		if output.Mode.Width <= 0 || output.Mode.Height <= 0 {
			errs = append(errs, fmt.Errorf("%s: mode %dx%d is not a valid resolution", label, output.Mode.Width, output.Mode.Height))
		}
		if output.Mode.Refresh < 0 {
			errs = append(errs, fmt.Errorf("%s: negative refresh rate %d", label, output.Mode.Refresh))
		}
		if output.Scale < 0 {
			errs = append(errs, fmt.Errorf("%s: negative scale %d", label, output.Scale))
		}
		if output.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		errs = append(errs, fmt.Errorf("%d outputs are marked primary, at most one may be", primaries))
	}
	return errors.Join(errs...)
}

// Primary returns the primary output.
func (c *Config) Primary() (Output, bool) {
	for _, output := range c.Outputs {
		if output.Primary {
			return output, true
		}
	}
	return Output{}, false
}
