package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config describes one capture run: the request to perform, where to write
// the trace archive, and the ambient tracing setup.
type Config struct {
	Target          string              `mapstructure:"target"`
	BaseURL         string              `mapstructure:"base_url"`
	Method          string              `mapstructure:"method"`
	Headers         map[string]string   `mapstructure:"headers"`
	Query           map[string][]string `mapstructure:"query"`
	Cookies         map[string]string   `mapstructure:"cookies"`
	Body            string              `mapstructure:"body"`
	BodyFile        string              `mapstructure:"body_file"`
	Output          string              `mapstructure:"output"`
	Timeout         time.Duration       `mapstructure:"timeout"`
	FollowRedirects bool                `mapstructure:"follow_redirects"`
	Repeat          int                 `mapstructure:"repeat"`
	Rate            int                 `mapstructure:"rate"`
	JSONOutput      bool                `mapstructure:"json_output"`
	Report          string              `mapstructure:"report"`
	ReportFilter    ReportFilterConfig  `mapstructure:"report_filter"`
	Auth            AuthConfig          `mapstructure:"auth"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	ConfigFile      string              `mapstructure:"-"`
}

// ReportFilterConfig narrows which archive entries a report includes.
type ReportFilterConfig struct {
	IncludeHosts   []string `mapstructure:"include_hosts"`
	ExcludeHosts   []string `mapstructure:"exclude_hosts"`
	IncludeMethods []string `mapstructure:"include_methods"`
	ExcludeStatic  bool     `mapstructure:"exclude_static"`
}

type AuthType string

const (
	AuthTypeStatic            AuthType = "static"
	AuthTypeBasic             AuthType = "basic"
	AuthTypeClientCredentials AuthType = "client_credentials"
)

type AuthConfig struct {
	Type         AuthType `mapstructure:"type"`
	StaticToken  string   `mapstructure:"static_token"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured, either directly
// or via the standard OTel environment variable.
func (t TracingConfig) Enabled() bool {
	return t.Endpoint != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into
// captured requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	reportMode := strings.TrimSpace(c.Report) != ""
	if !reportMode && strings.TrimSpace(c.Target) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}

	if c.Method != "" && !isKnownMethod(c.Method) {
		issues = append(issues, fmt.Sprintf("method %q is not a recognized HTTP method", c.Method))
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Repeat < 0 {
		issues = append(issues, "repeat must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}

	issues = append(issues, validateAuthConfig(c.Auth)...)

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateAuthConfig(a AuthConfig) []string {
	switch a.Type {
	case "":
		return nil
	case AuthTypeStatic:
		if strings.TrimSpace(a.StaticToken) == "" {
			return []string{"auth static_token is required for static auth"}
		}
	case AuthTypeBasic:
		if a.Username == "" {
			return []string{"auth username is required for basic auth"}
		}
	case AuthTypeClientCredentials:
		var issues []string
		if strings.TrimSpace(a.TokenURL) == "" {
			issues = append(issues, "auth token_url is required for client_credentials auth")
		}
		if strings.TrimSpace(a.ClientID) == "" {
			issues = append(issues, "auth client_id is required for client_credentials auth")
		}
		return issues
	default:
		return []string{fmt.Sprintf("auth type %q is not supported", a.Type)}
	}
	return nil
}

func isKnownMethod(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
