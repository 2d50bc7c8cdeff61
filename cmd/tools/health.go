package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/factory"
	"github.com/lychee-technology/formview/internal/store"
)

// runHealth checks the backends a server config points at: Postgres for the
// postgres document backend and the S3 endpoint for the s3 attachment backend.
func runHealth(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("health", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: formview-tools health [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}
	configFile := flags.String("config", "", "Path to the YAML or JSON server config (required)")
	timeout := flags.Duration("timeout", 5*time.Second, "timeout of each check")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *configFile == "" {
		return fmt.Errorf("-config is required")
	}
	cfg, err := formview.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	return checkBackends(context.Background(), cfg, *timeout, out)
}

func checkBackends(ctx context.Context, cfg *formview.Config, timeout time.Duration, out io.Writer) error {
	var errs []error
	if cfg.Server.Backend == "postgres" {
		if err := store.PostgresHealthCheck(ctx, factory.ConnString(cfg.Database), timeout); err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintln(out, "postgres: ok")
		}
	}
	if cfg.Blob.Backend == "s3" {
		if err := store.ValidateS3Config(cfg.Blob); err != nil {
			errs = append(errs, err)
		} else if cfg.Blob.Endpoint == "" {
			fmt.Fprintln(out, "s3: no custom endpoint, skipped")
		} else if err := store.S3HealthCheck(ctx, cfg.Blob, timeout); err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintln(out, "s3: ok")
		}
	}
	return errors.Join(errs...)
}
