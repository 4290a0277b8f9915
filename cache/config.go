/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package cache

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// SectionSpec describes one section to carve out of the total budget
// at construction time.
type SectionSpec struct {
	Bytes         uint64 `mapstructure:"bytes"`
	LineSize      uint64 `mapstructure:"line_size"`
	Kind          string `mapstructure:"kind"`
	Associativity int    `mapstructure:"associativity"`
}

// RangeSpec routes [Low, High] to the section at index Section of the
// Sections slice.
type RangeSpec struct {
	Low     PageID `mapstructure:"low"`
	High    PageID `mapstructure:"high"`
	Section int    `mapstructure:"section"`
}

// Config drives router construction. TotalBytes is the aggregate
// budget; PageSize must equal the backing store's page size;
// DefaultLineSize (PageSize when zero) shapes the default section.
// Explicit Sections are carved out of the total and the default
// section takes the remainder.
//
// VictimCacheBytes enables a byte-bounded second-level buffer that
// retains evicted page contents; it is off at zero so that eviction
// observably drops pages.
type Config struct {
	TotalBytes      uint64 `mapstructure:"total_bytes"`
	PageSize        uint64 `mapstructure:"page_size"`
	DefaultLineSize uint64 `mapstructure:"default_line_size"`

	VictimCacheBytes uint64 `mapstructure:"victim_cache_bytes"`
	VictimEngine     string `mapstructure:"victim_engine"`

	Sections []SectionSpec `mapstructure:"sections"`
	Ranges   []RangeSpec   `mapstructure:"ranges"`
}

// DefaultConfig returns a single-section configuration: 4 MiB of 4 KiB
// pages behind one fully-associative default section.
func DefaultConfig() Config {
	return Config{
		TotalBytes:      4 << 20,
		PageSize:        4096,
		DefaultLineSize: 4096,
	}
}

func (c Config) validate() error {
	if c.TotalBytes == 0 || c.PageSize == 0 {
		return errors.Wrap(ErrInvalidConfig, "total_bytes and page_size must be positive")
	}
	if c.DefaultLineSize != 0 && c.DefaultLineSize < c.PageSize {
		return errors.Wrapf(ErrLineSizeTooSmall, "default line %d, page %d", c.DefaultLineSize, c.PageSize)
	}
	for i, s := range c.Sections {
		if s.LineSize < c.PageSize {
			return errors.Wrapf(ErrLineSizeTooSmall, "section %d: line %d, page %d", i, s.LineSize, c.PageSize)
		}
		if _, err := KindFromString(s.Kind); err != nil {
			return err
		}
	}
	switch c.VictimEngine {
	case "", "fastcache", "freecache":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown victim engine %q", c.VictimEngine)
	}
	return nil
}

func (c Config) victimCache() VictimCache {
	if c.VictimCacheBytes == 0 {
		return nil
	}
	if c.VictimEngine == "freecache" {
		return NewFreeVictimCache(int(c.VictimCacheBytes))
	}
	return NewFastVictimCache(int64(c.VictimCacheBytes))
}

// ConfigFromFile loads a Config from path. The format is whatever
// viper accepts for the file extension (yaml, toml, json).
func ConfigFromFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrapf(err, "reading cache config %q", path)
	}
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "decoding cache config %q", path)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
