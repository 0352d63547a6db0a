// Command retrieve downloads the daily price history of every symbol listed in a delimited file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stock_retriever/internal/app/config"
	"stock_retriever/internal/app/di"
	"stock_retriever/internal/feature/download/domain"
	"stock_retriever/internal/feature/download/usecase"
	symboladapters "stock_retriever/internal/feature/symbols/adapters"
	jwtmw "stock_retriever/internal/platform/jwt"
)

const (
	exitOK      = 0
	exitFailure = 1 // at least one symbol failed, or the batch was aborted
	exitConfig  = 2 // nothing was downloaded
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(config.New(), stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "error: %v\n", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag parsing and other usage errors.
	return exitConfig
}

func newRootCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "retrieve --csv FILE --col NAME --prefix PREFIX",
		Short:         "Download daily price history for every symbol in a delimited file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return retrieve(cmd.Context(), v, stderr)
		},
	}

	if err := config.AddFlags(v, cmd.Flags(),
		config.KeyCSV, config.KeyColumn, config.KeyDelim, config.KeyPrefix, config.KeyBucket, config.KeyDate,
		config.KeyWorkers, config.KeyTimeout, config.KeyURLTemplate, config.KeyLegacyDateOffset, config.KeyUserAgent,
		config.KeyDBDriver, config.KeyDatabaseURL, config.KeyDBConnectTimeout, config.KeyRedisAddr, config.KeyRedisPassword, config.KeyLogLevel,
	); err != nil {
		panic(err)
	}

	cmd.AddCommand(newTokenCmd(v, stdout))
	return cmd
}

func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

func retrieve(ctx context.Context, v *viper.Viper, stderr io.Writer) error {
	cfg, err := config.Load(v)
	if err != nil {
		return configError(err)
	}
	if err := cfg.RequireBatchInputs(); err != nil {
		return configError(err)
	}
	logger, err := cfg.NewLogger(stderr)
	if err != nil {
		return configError(err)
	}
	slog.SetDefault(logger)

	delim, err := symboladapters.ParseDelimiter(cfg.Delim)
	if err != nil {
		return configError(err)
	}
	date, err := cfg.ReferenceDate()
	if err != nil {
		return configError(err)
	}

	r, err := di.NewRetriever(ctx, cfg)
	if err != nil {
		return configError(err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()

	run, err := r.Usecase.Retrieve(ctx, usecase.RetrieveRequest{
		CSVPath:   cfg.CSV,
		Column:    cfg.Column,
		Delimiter: delim,
		Prefix:    cfg.Prefix,
		Date:      date,
	})
	if run == nil {
		if domain.IsConfigurationError(err) {
			return configError(err)
		}
		return &exitError{code: exitFailure, err: err}
	}

	fmt.Fprintf(stderr, "retrieved %d/%d symbols, %d failed\n", run.Succeeded, run.Total, run.Failed)
	for _, f := range run.Failures {
		fmt.Fprintf(stderr, "  row %d %s: %s\n", f.Row, f.Symbol, f.Error)
	}

	if err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("batch aborted: %w", err)}
	}
	if run.Failed > 0 {
		return &exitError{code: exitFailure, err: fmt.Errorf("%d of %d symbols failed", run.Failed, run.Total)}
	}
	return nil
}

func newTokenCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for POST /runs signed with the configured jwt-secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := jwtmw.NewGenerator(v.GetString(config.KeyJWTSecret), ttl).GenerateToken(subject)
			if err != nil {
				return configError(err)
			}
			fmt.Fprintln(stdout, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "retrieve", "token subject recorded with triggered runs")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	if err := config.AddFlags(v, cmd.Flags(), config.KeyJWTSecret); err != nil {
		panic(err)
	}
	return cmd
}
