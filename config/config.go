/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config loads and validates the settings of a map rendering run.
// Settings come from, in increasing order of precedence: defaults, a
// trailmap.yaml file, TRAILMAP_* environment variables, and explicit
// overrides (usually command line flags).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"
	"github.com/timelinize/trailmap/location"
)

// Config holds the settings for one run.
type Config struct {
	Input     string `mapstructure:"input" validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	APIKey    string `mapstructure:"api_key" validate:"required_without=DryRun"`

	// Time window and instants to leave out; see ParseTime.
	Start       string `mapstructure:"start" validate:"omitempty,instant"`
	End         string `mapstructure:"end" validate:"omitempty,instant"`
	Corrections string `mapstructure:"corrections"`

	// Resampling interval; 0 disables resampling.
	Interpolation time.Duration `mapstructure:"interpolation" validate:"gte=0,wholems"`

	Zoom       int    `mapstructure:"zoom" validate:"min=1,max=21"`
	Size       string `mapstructure:"size" validate:"required,mapsize"`
	Scale      int    `mapstructure:"scale" validate:"oneof=1 2 4"`
	Format     string `mapstructure:"format" validate:"oneof=png jpg gif"`
	PathColor  string `mapstructure:"path_color" validate:"required,mapcolor"`
	PathWeight int    `mapstructure:"path_weight" validate:"min=1"`
	PointLimit int    `mapstructure:"point_limit" validate:"min=1"`

	Workers   int    `mapstructure:"workers" validate:"min=1,max=64"`
	RateLimit int    `mapstructure:"rate_limit" validate:"min=0"`
	Cache     string `mapstructure:"cache"`

	Verbosity string `mapstructure:"verbosity" validate:"oneof=quiet normal verbose"`
	DryRun    bool   `mapstructure:"dry_run"`
}

// Load reads the configuration. If configFile is empty, trailmap.yaml is
// looked for in the current directory and the user's config directory,
// and it's fine if there is none. Overrides are applied last, keyed by
// the same names as the config file.
func Load(configFile string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("trailmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "trailmap"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	// environment variables: TRAILMAP_API_KEY → api_key
	v.SetEnvPrefix("TRAILMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, val := range overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings are present and sane. The returned
// error wraps location.ErrInvalidParameter.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("mapsize", func(fl validator.FieldLevel) bool {
		_, _, err := ParseSize(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("mapcolor", func(fl validator.FieldLevel) bool {
		_, err := ParseColor(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("wholems", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%int64(time.Millisecond) == 0
	})
	_ = validate.RegisterValidation("instant", func(fl validator.FieldLevel) bool {
		_, err := ParseTime(fl.Field().String())
		return err == nil
	})

	err := validate.Struct(c)
	if err == nil {
		_, err = ParseCorrections(c.Corrections)
		if err != nil {
			return fmt.Errorf("%w: corrections: %w", location.ErrInvalidParameter, err)
		}
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return fmt.Errorf("%w: %s", location.ErrInvalidParameter, strings.Join(msgs, "; "))
}

// Settings are the parsed forms of the string-valued settings.
type Settings struct {
	Start, End    time.Time
	Corrections   []time.Time
	Width, Height int
	PathColor     string
}

// Parse converts the string-valued settings. It should be called
// after Validate.
func (c *Config) Parse() (Settings, error) {
	var s Settings
	var err error

	if c.Start != "" {
		if s.Start, err = ParseTime(c.Start); err != nil {
			return s, fmt.Errorf("start: %w", err)
		}
	}
	if c.End != "" {
		if s.End, err = ParseTime(c.End); err != nil {
			return s, fmt.Errorf("end: %w", err)
		}
	}
	if !s.Start.IsZero() && !s.End.IsZero() && s.End.Before(s.Start) {
		return s, fmt.Errorf("%w: end %s is before start %s", location.ErrInvalidParameter, c.End, c.Start)
	}
	if s.Corrections, err = ParseCorrections(c.Corrections); err != nil {
		return s, fmt.Errorf("corrections: %w", err)
	}
	if s.Width, s.Height, err = ParseSize(c.Size); err != nil {
		return s, fmt.Errorf("size: %w", err)
	}
	if s.PathColor, err = ParseColor(c.PathColor); err != nil {
		return s, fmt.Errorf("path color: %w", err)
	}
	return s, nil
}

var defaults = map[string]any{
	"input":         "",
	"output_dir":    "images",
	"api_key":       "",
	"start":         "",
	"end":           "",
	"corrections":   "",
	"interpolation": "0s",
	"zoom":          10,
	"size":          "512x512",
	"scale":         1,
	"format":        "png",
	"path_color":    "0x0000ff80",
	"path_weight":   5,
	"point_limit":   200,
	"workers":       4,
	"rate_limit":    0,
	"cache":         "",
	"verbosity":     "normal",
	"dry_run":       false,
}
