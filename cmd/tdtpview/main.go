// tdtpview serves a browser view of any table or view of a configured data
// source. The column set is taken from the fetched rows, so no schema is
// configured anywhere.
//
// Usage:
//
//	tdtpview [--dev] [--config path] [--addr :8080] [--dataset name]
//	tdtpview --config path --dataset name --export csv [--out file]
//
// Flags:
//
//	--dev      In-process miniredis and a seeded SQLite database (no external deps)
//	--config   Path to tdtpview.yaml
//	--addr     Override server.addr from config
//	--dataset  Dataset shown on startup
//	--export   One-shot mode: load --dataset, export it (csv or xlsx) and exit
//	--out      With --export, also write the artifact to this file
//
// Environment:
//
//	TDTPVIEW_SOURCE_DSN  source.dsn when the config leaves it empty
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/ruslano69/tdtp-viewer/pkg/adapters/mssql"
	_ "github.com/ruslano69/tdtp-viewer/pkg/adapters/mysql"
	_ "github.com/ruslano69/tdtp-viewer/pkg/adapters/postgres"
	_ "github.com/ruslano69/tdtp-viewer/pkg/adapters/sqlite"
	_ "github.com/ruslano69/tdtp-viewer/pkg/adapters/xlsx"
	"github.com/ruslano69/tdtp-viewer/pkg/brokers"
	"github.com/ruslano69/tdtp-viewer/pkg/viewer"
)

func main() {
	dev := flag.Bool("dev", false, "dev mode: in-process miniredis + seeded SQLite")
	configPath := flag.String("config", "", "path to config file")
	addrOverride := flag.String("addr", "", "listen address override (e.g. :3000)")
	datasetName := flag.String("dataset", "", "dataset shown on startup")
	exportFormat := flag.String("export", "", "one-shot export format (csv, xlsx)")
	outPath := flag.String("out", "", "with --export, write the artifact to this file")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *addrOverride != "" {
		cfg.Server.Addr = *addrOverride
	}
	if *datasetName != "" {
		cfg.Source.Dataset = *datasetName
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dev {
		env, err := setupDev(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("dev environment setup failed")
		}
		defer env.Close()

		log.Warn().Msg("──────────────────────────────────────────────────────")
		log.Warn().Msg("  DEV MODE ACTIVE: in-process miniredis + seeded SQLite ")
		log.Warn().Msg("  DO NOT use in production                             ")
		log.Warn().Msg("──────────────────────────────────────────────────────")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.Source.Type).Msg("startup failed")
	}
	defer a.Close()

	if *exportFormat != "" {
		if err := runExport(ctx, a, cfg.Source.Dataset, *exportFormat, *outPath); err != nil {
			log.Error().Err(err).Msg("export failed")
			a.Close()
			os.Exit(1)
		}
		return
	}

	if cfg.Source.Dataset != "" {
		a.SetDataset(cfg.Source.Dataset)
	}

	if cfg.Commands.Enabled {
		b, err := brokers.New(cfg.Commands.Broker)
		if err != nil {
			log.Fatal().Err(err).Msg("command broker")
		}
		if err := b.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("command broker connect failed")
		}
		defer b.Close()
		go newCommandListener(b, a).Run(ctx)
	}

	srv := newHTTPServer(cfg.Server, newRouter(a))

	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Bool("dev", *dev).
			Str("source", cfg.Source.Type).
			Str("config", *configPath).
			Msg("tdtpview started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("stopped")
}

func setupLogging(cfg LogConfig) {
	if cfg.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// runExport loads name, waits for the result and exports it once.
func runExport(ctx context.Context, a *app, name, format, out string) error {
	if name == "" {
		return errors.New("--export needs --dataset (or source.dataset)")
	}
	f, err := viewer.ParseFormat(format)
	if err != nil {
		return err
	}

	a.SetDataset(name)
	st, err := a.controller.WaitSettled(ctx)
	if err != nil {
		return err
	}
	switch st.Status {
	case viewer.StatusFailed:
		return fmt.Errorf("load %s: %s", name, st.Message)
	case viewer.StatusEmpty:
		log.Warn().Str("dataset", name).Msg("dataset is empty, nothing exported")
		return nil
	}

	art, err := a.Export(ctx, f)
	if err != nil {
		return err
	}
	if art == nil {
		return errors.New("export produced no artifact")
	}
	if out != "" {
		if err := os.WriteFile(out, art.Body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	}
	log.Info().
		Str("artifact", art.ID).
		Str("file", art.FileName).
		Int("rows", art.Rows).
		Int("bytes", art.Size).
		Str("checksum", art.Checksum).
		Msg("export done")
	return nil
}
