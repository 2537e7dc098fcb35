/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string `mapstructure:"app_env"`
	TZ       string `mapstructure:"tz"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	AzureOrgURL     string `mapstructure:"azure_devops_org_url" validate:"required,url"`
	AzureProject    string `mapstructure:"azure_devops_project" validate:"required"`
	AzurePAT        string `mapstructure:"azure_devops_pat" validate:"required"`
	AzureAPIVersion string `mapstructure:"azure_devops_api_version" validate:"required"`

	AIBaseURL string `mapstructure:"ai_api_base_url" validate:"omitempty,url"`
	AIKey     string `mapstructure:"ai_api_key"`
	AIModel   string `mapstructure:"ai_model" validate:"required"`

	RelayEnabled bool          `mapstructure:"relay_enabled"`
	RelayURL     string        `mapstructure:"relay_url" validate:"omitempty,url"`
	RelayTimeout time.Duration `mapstructure:"relay_timeout"`

	DigestCron string `mapstructure:"digest_cron"`
}

var defaults = map[string]any{
	"app_env":                  "dev",
	"tz":                       "UTC",
	"port":                     3000,
	"log_level":                "info",
	"azure_devops_org_url":     "",
	"azure_devops_project":     "",
	"azure_devops_pat":         "",
	"azure_devops_api_version": "7.0",
	"ai_api_base_url":          "https://api.openai.com/v1",
	"ai_api_key":               "",
	"ai_model":                 "gpt-4o-mini",
	"relay_enabled":            false,
	"relay_url":                "",
	"relay_timeout":            5 * time.Second,
	"digest_cron":              "",
}

// validate is shared; validator caches struct metadata per instance.
var validate = validator.New()

// Load reads .env (if any), an optional config file and the environment, in
// increasing order of precedence. The result is not validated.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the deploy scripts export APP_TZ, keep it working
	_ = v.BindEnv("tz", "APP_TZ", "TZ")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.AzureOrgURL = strings.TrimRight(strings.TrimSpace(cfg.AzureOrgURL), "/")
	cfg.RelayURL = strings.TrimRight(strings.TrimSpace(cfg.RelayURL), "/")
	if cfg.RelayTimeout <= 0 {
		cfg.RelayTimeout = 5 * time.Second
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func (c Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.Port) }

// Location falls back to UTC when the zone database lacks c.TZ.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
