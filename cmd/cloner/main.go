// Command cloner serves the page cloning API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/orchid/internal/api"
	"github.com/FranksOps/orchid/internal/config"
	"github.com/FranksOps/orchid/internal/fingerprint"
	"github.com/FranksOps/orchid/internal/generate"
	"github.com/FranksOps/orchid/internal/llm"
	"github.com/FranksOps/orchid/internal/logging"
	"github.com/FranksOps/orchid/internal/scrape"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, configFile string

	cmd := &cobra.Command{
		Use:           "cloner",
		Short:         "Serve the website cloning API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from LISTEN_ADDR or :8000)")
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, "cloner")
	for _, w := range cfg.ClonerWarnings() {
		logger.Warn(w)
	}

	scraper, closeScraper, err := newScraper(cfg.Scrape, logger)
	if err != nil {
		return err
	}
	defer closeScraper()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Deps{
		Scraper:   scraper,
		Generator: generate.New(newGeneratorLLM(ctx, cfg.Generator, logger), logger),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr, "scraper", cfg.Scrape.Backend, "generator", cfg.Generator.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func newScraper(cfg config.ScrapeConfig, logger *slog.Logger) (scrape.Scraper, func(), error) {
	if cfg.Backend != config.BackendDirect {
		fc := scrape.NewFirecrawl(scrape.FirecrawlConfig{
			Host:    cfg.FirecrawlHost,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		return fc, func() {}, nil
	}

	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, nil, err
	}
	d, err := scrape.NewDirect(scrape.DirectConfig{
		Timeout:       cfg.Timeout,
		Fingerprint:   profile,
		RespectRobots: cfg.RespectRobots,
		RPS:           cfg.RPS,
		Proxies:       cfg.Proxies,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("direct scraper: %w", err)
	}
	return d, d.Close, nil
}

// newGeneratorLLM never fails: a provider that cannot be built becomes an
// llm.Unavailable, so requests still get an error page instead of the
// service refusing to start.
func newGeneratorLLM(ctx context.Context, cfg config.GeneratorConfig, logger *slog.Logger) llm.Completer {
	if cfg.Provider == config.ProviderOpenAI {
		return llm.NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, nil)
	}

	g, err := llm.NewGemini(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model, nil)
	if err != nil {
		logger.Warn("gemini client unavailable", "err", err)
		return llm.Unavailable{Err: err}
	}
	return g
}
