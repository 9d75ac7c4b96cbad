package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file to
// produce a Config. Flags override file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			_ = cmd.Usage()
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flags := cmd.Flags()
	if wantsHelp, err := flags.GetBool("help"); err == nil && wantsHelp {
		_ = cmd.Usage()
		return nil, ErrHelpRequested
	}

	configPath, _ := flags.GetString("config")
	if len(args) == 0 && configPath == "" {
		_ = cmd.Usage()
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Method:          "GET",
		Timeout:         30 * time.Second,
		FollowRedirects: true,
		Repeat:          1,
		Tracing:         TracingConfig{SampleRate: 1.0},
		ConfigFile:      configPath,
	}

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyFlagOverrides(cfg, flags); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags over file-provided settings.
// Repeatable key=value flags merge into file-provided maps, flag entries
// winning per key.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	stringFlags := map[string]*string{
		"target":             &cfg.Target,
		"base-url":           &cfg.BaseURL,
		"method":             &cfg.Method,
		"body":               &cfg.Body,
		"body-file":          &cfg.BodyFile,
		"output":             &cfg.Output,
		"report":             &cfg.Report,
		"auth-token":         &cfg.Auth.StaticToken,
		"auth-username":      &cfg.Auth.Username,
		"auth-password":      &cfg.Auth.Password,
		"auth-token-url":     &cfg.Auth.TokenURL,
		"auth-client-id":     &cfg.Auth.ClientID,
		"auth-client-secret": &cfg.Auth.ClientSecret,
		"otel-endpoint":      &cfg.Tracing.Endpoint,
		"otel-protocol":      &cfg.Tracing.Protocol,
		"otel-service-name":  &cfg.Tracing.ServiceName,
	}
	for name, dest := range stringFlags {
		if flags.Changed(name) {
			value, err := flags.GetString(name)
			if err != nil {
				return err
			}
			*dest = value
		}
	}

	intFlags := map[string]*int{
		"repeat": &cfg.Repeat,
		"rate":   &cfg.Rate,
	}
	for name, dest := range intFlags {
		if flags.Changed(name) {
			value, err := flags.GetInt(name)
			if err != nil {
				return err
			}
			*dest = value
		}
	}

	boolFlags := map[string]*bool{
		"follow-redirects": &cfg.FollowRedirects,
		"json-output":      &cfg.JSONOutput,
		"exclude-static":   &cfg.ReportFilter.ExcludeStatic,
		"otel-insecure":    &cfg.Tracing.Insecure,
		"otel-propagate":   &cfg.Tracing.Propagate,
	}
	for name, dest := range boolFlags {
		if flags.Changed(name) {
			value, err := flags.GetBool(name)
			if err != nil {
				return err
			}
			*dest = value
		}
	}

	sliceFlags := map[string]*[]string{
		"include-host":   &cfg.ReportFilter.IncludeHosts,
		"exclude-host":   &cfg.ReportFilter.ExcludeHosts,
		"include-method": &cfg.ReportFilter.IncludeMethods,
		"auth-scope":     &cfg.Auth.Scopes,
	}
	for name, dest := range sliceFlags {
		if flags.Changed(name) {
			value, err := flags.GetStringSlice(name)
			if err != nil {
				return err
			}
			*dest = value
		}
	}

	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
	}
	if flags.Changed("otel-sample-rate") {
		value, err := flags.GetFloat64("otel-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = value
	}
	if flags.Changed("auth-type") {
		value, err := flags.GetString("auth-type")
		if err != nil {
			return err
		}
		cfg.Auth.Type = AuthType(value)
	}

	if flags.Changed("header") {
		entries, err := flags.GetStringSlice("header")
		if err != nil {
			return err
		}
		headers, err := parsePairs(entries, "header")
		if err != nil {
			return err
		}
		cfg.Headers = mergePairs(cfg.Headers, headers)
	}
	if flags.Changed("cookie") {
		entries, err := flags.GetStringSlice("cookie")
		if err != nil {
			return err
		}
		cookies, err := parsePairs(entries, "cookie")
		if err != nil {
			return err
		}
		cfg.Cookies = mergePairs(cfg.Cookies, cookies)
	}
	if flags.Changed("query") {
		entries, err := flags.GetStringSlice("query")
		if err != nil {
			return err
		}
		query, err := parseMultiPairs(entries, "query")
		if err != nil {
			return err
		}
		if cfg.Query == nil {
			cfg.Query = query
		} else {
			for key, values := range query {
				cfg.Query[key] = values
			}
		}
	}

	return nil
}

func mergePairs(base, overrides map[string]string) map[string]string {
	if base == nil {
		return overrides
	}
	for key, value := range overrides {
		base[key] = value
	}
	return base
}
