package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/cli/config"
	controller "github.com/m-mizutani/pdfdesk/pkg/controller/http"
	"github.com/m-mizutani/pdfdesk/pkg/infra/transition"
	"github.com/m-mizutani/pdfdesk/pkg/usecase"
	"github.com/m-mizutani/pdfdesk/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

const sweepInterval = time.Minute

func cmdServe() *cli.Command {
	var (
		serverCfg     config.Server
		toolsCfg      config.Tools
		backendCfg    config.Backend
		storageCfg    config.Storage
		transitionCfg config.Transition
		notifyCfg     config.Notify
		sentryCfg     config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, toolsCfg.Flags()...)
	flags = append(flags, backendCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, transitionCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting pdfdesk server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("server", serverCfg),
				slog.Any("transition", transitionCfg),
				slog.Any("notify", notifyCfg),
			)

			if err := sentryCfg.Configure(); err != nil {
				return err
			}
			defer sentry.Flush(2 * time.Second)

			catalog, err := toolsCfg.Configure()
			if err != nil {
				return err
			}
			sessionKey, err := serverCfg.SessionKey()
			if err != nil {
				return err
			}
			backend, err := backendCfg.Configure()
			if err != nil {
				return err
			}
			blobs, closeBlobs, err := storageCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeBlobs()
			transitions, closeTransitions, err := transitionCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeTransitions()

			opts, closeSinks := notifyCfg.Options()
			defer closeSinks()
			opts = append(opts,
				usecase.WithSessionTTL(serverCfg.SessionTTL),
				usecase.WithProbeTimeout(backendCfg.ProbeTimeout),
			)

			// Create use cases
			uc := usecase.New(catalog, blobs, backend, transitions, opts...)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				catalog,
				uc,
				uc,
				controller.WithAddr(serverCfg.Addr),
				controller.WithSessionSecret(sessionKey),
				controller.WithSessionTTL(serverCfg.SessionTTL),
				controller.WithSecureCookie(serverCfg.SecureCookie),
				controller.WithMaxUpload(serverCfg.MaxUpload()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			sweepCtx, stopSweep := context.WithCancel(ctx)
			defer stopSweep()
			go uc.SessionStore().Run(sweepCtx, sweepInterval)
			if mem, ok := transitions.(*transition.Memory); ok {
				go sweepTransitions(sweepCtx, mem)
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := async.Wait(shutdownCtx); err != nil {
				logger.Warn("Background tasks did not finish", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

func sweepTransitions(ctx context.Context, mem *transition.Memory) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Sweep(); n > 0 {
				ctxlog.From(ctx).Debug("Swept transition tokens", "count", n)
			}
		}
	}
}
