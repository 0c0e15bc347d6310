// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pulse

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gomlx/pulse/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config of a pulsification.
type Config struct {
	// Pulse is the number of stream positions processed per step.
	Pulse int `yaml:"pulse" validate:"gt=0"`

	// Axis is the streaming axis of the sources, used if Symbol is empty.
	Axis int `yaml:"axis" validate:"gte=0"`

	// Symbol is the name of the symbolic dimension of the stream: each source streams on the axis
	// with that name.
	Symbol string `yaml:"symbol,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate returns an error if the configuration is not usable.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(err, "invalid pulse configuration %+v", c)
	}
	return nil
}

// LoadConfig reads and validates a configuration in YAML format. A leading "~" in path stands for the
// home directory.
func LoadConfig(path string) (Config, error) {
	var c Config
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "reading pulse configuration")
	}
	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrapf(err, "parsing pulse configuration from %q", path)
	}
	return c, c.Validate()
}
