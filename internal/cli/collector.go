package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-quiz/internal/app"
	transport "card-quiz/internal/transport/http"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the collector.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the collector ingest and web servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollector(cmd.Context(), *configPath, *port)
		},
	}
}

func runCollector(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	collector, b, err := newCollector(ctx, cfg, app.WithEvents(publisher))
	if err != nil {
		return err
	}
	defer b.Close()

	handler := transport.NewHandler(collector, cfg.Server.AdminPassword)
	if cfg.Server.AdminPassword == "" {
		log.Warn().Msg("server.admin_password empty, admin routes disabled")
	}

	ingest := &http.Server{
		Addr:         ":" + cfg.Server.IngestPort,
		Handler:      handler.IngestRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	web := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     handler.WebRouter(),
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(ingest, "ingest") })
	g.Go(func() error { return serve(web, "web") })
	if cfg.Serial.Path != "" {
		g.Go(func() error { return ingestSerial(gctx, collector, cfg.Serial.Path) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down collector")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(ingest.Shutdown(shutdownCtx), web.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func serve(srv *http.Server, lane string) error {
	log.Info().Str("lane", lane).Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Str("lane", lane).Msg("server failed")
		return err
	}
	return nil
}

// ingestSerial reads runs from a serial device until ctx is done.
func ingestSerial(ctx context.Context, collector *app.Collector, path string) error {
	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("open serial device")
		return nil
	}
	go func() {
		<-ctx.Done()
		_ = f.Close()
	}()
	log.Info().Str("path", path).Msg("serial ingest started")
	if err := transport.NewLineIngester(collector).Run(ctx, f); err != nil {
		log.Error().Err(err).Str("path", path).Msg("serial ingest stopped")
	}
	return nil
}
