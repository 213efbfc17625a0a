package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/k9ert/rbac-poc/internal/config"
	"github.com/k9ert/rbac-poc/internal/serverapp"
)

func main() {
	cfg, err := config.Load("rbac_config.yml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := log.Default()

	apiHandler, err := serverapp.NewAPIHandler(serverapp.Options{Config: cfg, Logger: logger})
	if err != nil {
		log.Fatalf("build admin api: %v", err)
	}
	webHandler, err := serverapp.NewWebAppHandler(serverapp.Options{Config: cfg, Logger: logger})
	if err != nil {
		log.Fatalf("build web app: %v", err)
	}

	apiSrv := &http.Server{
		Addr:              cfg.AdminAPIAddr,
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	webSrv := &http.Server{
		Addr:              cfg.WebAppAddr,
		Handler:           webHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("admin api listening on http://localhost%s", apiSrv.Addr)
		return serve(apiSrv)
	})
	g.Go(func() error {
		logger.Printf("web app listening on http://localhost%s", webSrv.Addr)
		return serve(webSrv)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = webSrv.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
