package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/harfire/internal/capture"
	"github.com/torosent/harfire/internal/config"
	"github.com/torosent/harfire/internal/har"
	"github.com/torosent/harfire/internal/httpclient"
	"github.com/torosent/harfire/internal/metrics"
	"github.com/torosent/harfire/internal/output"
	"github.com/torosent/harfire/internal/tracing"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Report != "" {
		return runReport(cfg, os.Stdout)
	}
	return runCapture(ctx, cfg)
}

// runReport summarizes an existing trace archive instead of recording one.
func runReport(cfg *config.Config, w io.Writer) error {
	archive, err := har.ParseFile(cfg.Report)
	if err != nil {
		return err
	}

	entries, err := har.FilterEntries(archive, har.FilterOptions{
		IncludeHosts:   cfg.ReportFilter.IncludeHosts,
		ExcludeHosts:   cfg.ReportFilter.ExcludeHosts,
		IncludeMethods: cfg.ReportFilter.IncludeMethods,
		ExcludeStatic:  cfg.ReportFilter.ExcludeStatic,
	})
	if err != nil {
		return err
	}

	stats := metrics.Summarize(entries)
	if cfg.JSONOutput {
		return output.PrintJSONReport(w, stats)
	}
	output.PrintReport(w, stats)
	return nil
}

func runCapture(ctx context.Context, cfg *config.Config) error {
	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	var opts []capture.Option
	if cfg.Tracing.Enabled() || provider.ShouldPropagate() {
		opts = append(opts, capture.WithTracer(provider.Tracer(), provider.ShouldPropagate()))
	}

	rec, err := capture.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rec.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: closing trace: %v\n", closeErr)
		}
	}()

	spec := &httpclient.RequestSpec{
		Method:   cfg.Method,
		Target:   cfg.Target,
		Headers:  cfg.Headers,
		Query:    url.Values(cfg.Query),
		Cookies:  cfg.Cookies,
		Body:     cfg.Body,
		BodyFile: cfg.BodyFile,
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	repeat := cfg.Repeat
	if repeat < 1 {
		repeat = 1
	}

	var executed, failed int
	for i := 0; i < repeat; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}

		result, err := rec.Execute(ctx, spec)
		if err != nil {
			var recErr *capture.RecordError
			if errors.As(err, &recErr) {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", recErr)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				failed++
				continue
			}
		}
		executed++

		if !cfg.JSONOutput {
			fmt.Printf("%s %s -> %d %s (%d bytes)\n",
				spec.Method, cfg.Target, result.Status, result.StatusText, len(result.Body))
		}
	}

	if err := rec.Close(); err != nil {
		return err
	}

	if cfg.JSONOutput {
		return printRunJSON(os.Stdout, rec.TracePath(), executed, failed)
	}
	if path := rec.TracePath(); path != "" {
		fmt.Printf("Trace written to %s (%d entries)\n", path, executed)
	}

	if executed == 0 && failed > 0 {
		return fmt.Errorf("all %d requests failed", failed)
	}
	return nil
}

func printRunJSON(w io.Writer, path string, executed, failed int) error {
	_, err := fmt.Fprintf(w, "{\"trace\":%q,\"executed\":%d,\"failed\":%d}\n", path, executed, failed)
	return err
}
