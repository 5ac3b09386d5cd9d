// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config parses the collector's process-level config.yaml: time
// zone and NTP settings used to stamp metadata timestamps, and whether
// the process should re-launch itself elevated before running any
// workflow.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	caseerrors "github.com/tombee/casefile/pkg/errors"
	"github.com/tombee/casefile/pkg/platform"
)

// Config is the top-level process configuration.
type Config struct {
	Time    TimeConfig `yaml:"time"`
	Elevate bool       `yaml:"elevate,omitempty"`
}

// TimeConfig controls time-zone stamping and the startup NTP check.
type TimeConfig struct {
	// TimeZone is an IANA zone name (e.g. "UTC", "America/New_York").
	// All metadata.csv timestamps are rendered in this zone.
	TimeZone string `yaml:"time_zone"`

	// NTPEnabled runs a one-shot clock sanity check against NTPServers
	// before any workflow starts.
	NTPEnabled bool `yaml:"ntp_enabled,omitempty"`

	// NTPTimeout is the per-server query timeout in seconds; 0 disables
	// the check even if NTPEnabled is true.
	NTPTimeout int `yaml:"ntp_timeout,omitempty"`

	// NTPServers is a list of "host:port" NTP servers queried in order
	// until one responds.
	NTPServers []string `yaml:"ntp_servers,omitempty"`
}

// Default returns the configuration used when no config.yaml is present.
func Default() *Config {
	return &Config{
		Time: TimeConfig{
			TimeZone:   "UTC",
			NTPEnabled: false,
			NTPTimeout: 5,
		},
		Elevate: false,
	}
}

// Load reads config.yaml from path, applying defaults to unset fields and
// validating the result. A missing file is not an error; Default() is
// returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, &caseerrors.ConfigError{Key: "config_file", Reason: fmt.Sprintf("reading %s", path), Cause: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &caseerrors.ConfigError{Key: "config_file", Reason: fmt.Sprintf("parsing %s", path), Cause: err}
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &caseerrors.ConfigError{Key: "validation", Reason: "config.yaml failed validation", Cause: err}
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Time.TimeZone == "" {
		c.Time.TimeZone = "UTC"
	}
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Time.TimeZone); err != nil {
		return &caseerrors.ValidationError{
			Field:      "time.time_zone",
			Message:    fmt.Sprintf("unrecognized IANA time zone %q", c.Time.TimeZone),
			Suggestion: "use a zone from the IANA tz database, e.g. UTC or America/New_York",
		}
	}

	if c.Time.NTPTimeout < 0 {
		return &caseerrors.ValidationError{Field: "time.ntp_timeout", Message: "must not be negative"}
	}

	if c.Time.NTPEnabled {
		if len(c.Time.NTPServers) == 0 {
			return &caseerrors.ValidationError{
				Field:      "time.ntp_servers",
				Message:    "at least one server is required when ntp_enabled is true",
				Suggestion: `add entries like "pool.ntp.org:123"`,
			}
		}
		for _, s := range c.Time.NTPServers {
			if !strings.Contains(s, ":") {
				return &caseerrors.ValidationError{
					Field:      "time.ntp_servers",
					Message:    fmt.Sprintf("server %q must be in host:port form", s),
					Suggestion: `e.g. "pool.ntp.org:123"`,
				}
			}
		}
	}

	return nil
}

// Location returns the *time.Location Validate already confirmed parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Time.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnsureElevated re-launches the current process with OS-appropriate
// elevation when Elevate is set and the probe reports we aren't already
// privileged. It never returns on a successful re-launch: the platform
// implementation either waits on the elevated child (Unix) or starts it
// without waiting (Windows), then calls os.Exit itself. A non-nil return
// means elevation was required but could not be obtained.
func EnsureElevated(cfg *Config, probe platform.Probe) error {
	if !cfg.Elevate || probe.IsElevated() {
		return nil
	}
	return relaunchElevated()
}
