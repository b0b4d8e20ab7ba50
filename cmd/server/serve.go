package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const insecureSecret = "CHANGE_ME_IN_PRODUCTION_SECRET!!"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == insecureSecret {
		return errors.New("session secret key not set: please set a secure VALOUR_SESSION_SECRET_KEY environment variable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.migrate(); err != nil {
		return err
	}

	enforcer, err := newEnforcer(cfg, log)
	if err != nil {
		return err
	}
	sso, err := newSSO(ctx, cfg.OIDC, cfg.Server.BaseURL)
	if err != nil {
		return err
	}
	if sso == nil {
		log.Info("OIDC not configured; admins sign in with email and password only.")
	}

	router, err := a.router(newSessions(cfg, a.db), enforcer, sso)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Outbox.Enabled {
		interval := cfg.Outbox.Interval
		if interval <= 0 {
			interval = time.Minute
		}
		g.Go(func() error {
			log.Info(fmt.Sprintf("Starting outbox dispatcher every %s", interval))
			a.dispatcher.Run(gctx, interval)
			return nil
		})
	}
	g.Go(func() error {
		var err error
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Warn("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exiting")
	return nil
}
