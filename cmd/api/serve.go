package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/leadcapture/internal/infra/http/handlers"
	"github.com/xavierca1/leadcapture/internal/infra/http/middleware"
	"github.com/xavierca1/leadcapture/internal/infra/queue"
	"github.com/xavierca1/leadcapture/internal/infra/worker"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and the background pollers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		whatsappHandler := handlers.NewWhatsAppHandler(a.processWhatsApp, cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AppSecret)
		router := newRouter(ctx, a, whatsappHandler)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			return a.scheduler().Run(gctx)
		})

		if a.rabbit != nil && a.eventHandler != nil {
			consumer := queue.NewWorker(a.rabbit.Ch, a.eventHandler)
			g.Go(func() error {
				return consumer.Start(gctx, queue.QueueName)
			})
		}

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
			whatsappHandler.Wait()
			return nil
		})

		return g.Wait()
	},
}

func newRouter(ctx context.Context, a *app, whatsappHandler *handlers.WhatsAppHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Webhook-Signature", "X-Form-Origin"},
	}))

	var broker handlers.BrokerStatus
	if a.rabbit != nil {
		broker = a.rabbit
	}
	health := handlers.NewHealthHandler(a.pool, broker, a.adapters.Channels(), version)
	r.Get("/health", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		if a.adapters.WebForm {
			limiter := handlers.NewRateLimiter(ctx, a.cfg.WebForm.RateLimit)
			webform := handlers.NewWebFormHandler(a.submitWebForm, a.cfg.WebForm.Secret, limiter)
			r.Post("/webform", webform.Submit)
		}
		if a.adapters.Messaging {
			r.Get("/whatsapp", whatsappHandler.Verify)
			r.Post("/whatsapp", whatsappHandler.Receive)
		}
	})

	if a.adapters.ManualTriggers {
		polls := handlers.NewPollHandler(a.cfg.Server.AdminToken, a.pollers()...)
		r.Post("/admin/poll/email", polls.Trigger(worker.PollerEmail))
		r.Post("/admin/poll/telephony", polls.Trigger(worker.PollerTelephony))
	}

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
