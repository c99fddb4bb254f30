// Package cli implements the connector command line: serve runs the HTTP
// server, upload-file delivers a local CSV file in one run.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/app"
	"github.com/showads/data-connector/internal/core/domain"
	"github.com/showads/data-connector/internal/core/service"
	"github.com/showads/data-connector/internal/pkg/config"
	"github.com/showads/data-connector/pkg/logger"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	shutdownTimeout = 10 * time.Second
)

const usage = `Usage:
  connector serve
  connector upload-file [-mi|-minimum N] [-ma|-maximum N] FILE
`

// Runner executes one command. LoadConfig defaults to config.Load.
type Runner struct {
	Stdout     io.Writer
	Stderr     io.Writer
	LoadConfig func(ctx context.Context) (*config.Config, error)
}

// Run dispatches args (without the program name) and returns the exit code.
// Without a command it serves HTTP.
func (r Runner) Run(ctx context.Context, args []string) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return r.withApp(ctx, func(a *app.App) int { return r.serve(ctx, a) })
	case "upload-file":
		return r.uploadFile(ctx, args)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(r.Stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(r.Stderr, "unknown command %q\n%s", cmd, usage)
		return exitUsage
	}
}

func (r Runner) withApp(ctx context.Context, fn func(a *app.App) int) int {
	load := r.LoadConfig
	if load == nil {
		load = config.Load
	}
	cfg, err := load(ctx)
	if err != nil {
		fmt.Fprintln(r.Stderr, err)
		return exitError
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Output:  r.Stderr,
		Service: "data-connector",
	})

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start")
		return exitError
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close stores")
		}
	}()

	return fn(a)
}

func (r Runner) serve(ctx context.Context, a *app.App) int {
	e := a.Router()
	addr := ":" + a.Config.Port

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error().Err(err).Msg("http server stopped")
			return exitError
		}
		return exitOK
	case <-ctx.Done():
	}

	a.Log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.Log.Error().Err(err).Msg("graceful shutdown failed")
		return exitError
	}
	return exitOK
}

func (r Runner) uploadFile(ctx context.Context, args []string) int {
	var filter domain.AgeFilter
	minAge := optionalInt{target: &filter.MinAge}
	maxAge := optionalInt{target: &filter.MaxAge}

	fs := flag.NewFlagSet("upload-file", flag.ContinueOnError)
	fs.SetOutput(r.Stderr)
	fs.Usage = func() { fmt.Fprint(r.Stderr, usage) }
	fs.Var(&minAge, "mi", "minimum age filter")
	fs.Var(&minAge, "minimum", "minimum age filter")
	fs.Var(&maxAge, "ma", "maximum age filter")
	fs.Var(&maxAge, "maximum", "maximum age filter")

	files, err := parseInterspersed(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(files) != 1 {
		fs.Usage()
		return exitUsage
	}
	path := files[0]

	if !service.IsCSVFilename(path) {
		fmt.Fprintln(r.Stdout, "Only CSV file format is supported.")
		return exitError
	}

	return r.withApp(ctx, func(a *app.App) int {
		return sendFile(ctx, a, path, filter, r.Stdout, a.Log)
	})
}

func sendFile(ctx context.Context, a *app.App, path string, filter domain.AgeFilter, out io.Writer, log zerolog.Logger) int {
	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to open file")
		return exitError
	}
	defer f.Close()

	records := a.Ingest.ParseCSV(f, filter, service.SourceCLI)
	sent, err := a.Delivery.SendAll(ctx, records)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("undelivered records were not stored")
		return exitError
	}

	fmt.Fprintf(out, "Successfully sent %d of records.\n", sent)
	return exitOK
}

// parseInterspersed lets flags appear before or after the file argument.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// optionalInt is a flag.Value that leaves its target nil until set.
type optionalInt struct {
	target **int
}

func (o *optionalInt) String() string {
	if o.target == nil || *o.target == nil {
		return ""
	}
	return strconv.Itoa(**o.target)
}

func (o *optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%q is not an integer", s)
	}
	*o.target = &v
	return nil
}
