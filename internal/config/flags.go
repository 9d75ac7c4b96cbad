package config

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "harfire",
		Short:         "Perform HTTP requests and record every exchange as a HAR trace",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Request flags
	flags.String("target", "", "Target URL to request and record")
	flags.String("base-url", "", "Base URL that relative targets are resolved against")
	flags.StringP("method", "X", "GET", "HTTP method to use")
	flags.StringSliceP("header", "H", nil, "Request header in key=value form (repeatable)")
	flags.StringSlice("query", nil, "Extra query parameter in key=value form (repeatable)")
	flags.StringSlice("cookie", nil, "Request cookie in key=value form (repeatable)")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Bool("follow-redirects", true, "Follow HTTP redirects")

	// Capture flags
	flags.StringP("output", "o", "", "Trace archive path (generated when omitted)")
	flags.IntP("repeat", "n", 1, "Number of times to perform the request")
	flags.IntP("rate", "r", 0, "Requests per second when repeating (0 means unpaced)")

	// Report flags
	flags.String("report", "", "Summarize an existing trace archive instead of recording")
	flags.StringSlice("include-host", nil, "Report only entries for these hosts")
	flags.StringSlice("exclude-host", nil, "Report entries excluding these hosts")
	flags.StringSlice("include-method", nil, "Report only entries with these HTTP methods")
	flags.Bool("exclude-static", false, "Exclude static assets (.js, .css, images, fonts) from the report")
	flags.Bool("json-output", false, "Emit JSON formatted report output")

	// Auth flags
	flags.String("auth-type", "", "Authentication type: static, basic or client_credentials")
	flags.String("auth-token", "", "Static bearer token")
	flags.String("auth-username", "", "Basic auth username")
	flags.String("auth-password", "", "Basic auth password")
	flags.String("auth-token-url", "", "OAuth2 token endpoint for client_credentials")
	flags.String("auth-client-id", "", "OAuth2 client id")
	flags.String("auth-client-secret", "", "OAuth2 client secret")
	flags.StringSlice("auth-scope", nil, "OAuth2 scope (repeatable)")

	// Tracing flags
	flags.String("otel-endpoint", "", "OTLP exporter endpoint")
	flags.String("otel-protocol", "", "OTLP protocol: grpc or http")
	flags.String("otel-service-name", "", "Service name reported on spans")
	flags.Float64("otel-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.Bool("otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("otel-propagate", false, "Inject W3C trace context headers into captured requests")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}
