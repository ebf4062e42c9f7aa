package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Itish41/DocIntel/controller"
	"github.com/Itish41/DocIntel/middleware"
)

var withWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the document and QA HTTP API. With --with-worker the processing
worker runs in the same process; it always does for the memory queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		global := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
		defer global.Stop()
		strict := middleware.NewRateLimiter(cfg.Server.StrictLimit, cfg.Server.RateWindow)
		defer strict.Stop()

		router := controller.NewRouter(controller.RouterConfig{
			Documents:     controller.NewDocumentController(a.documents),
			QA:            controller.NewQAController(a.qa, a.search),
			Search:        controller.NewSearchController(a.search),
			Logger:        slog.Default().With("component", "http"),
			CORSOrigins:   cfg.Server.CORSOrigins,
			GlobalLimiter: global,
			StrictLimiter: strict,
		})
		srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			slog.Info("server listening", "addr", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			slog.Info("shutting down server")
			return srv.Shutdown(shutdownCtx)
		})
		if withWorker || cfg.Queue.Backend == "memory" {
			g.Go(func() error { return a.worker.Run(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "run the processing worker in this process")
	rootCmd.AddCommand(serveCmd)
}
