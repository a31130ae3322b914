package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopherform/internal/bootstrap"
	httptransport "gopherform/internal/transport/http"
)

const initTimeout = 30 * time.Second

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The listener comes up first; /api stays at 503 until Initialize is done.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("component=server msg=%q addr=%s", "starting", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := startup(ctx, app.Initialize, errCh, quit); err != nil {
		log.Printf("component=bootstrap msg=%q err=%v", "startup failed", err)
		shutdown(server, app)
		os.Exit(1)
	}

	select {
	case sig := <-quit:
		log.Printf("component=server msg=%q signal=%s", "shutting down", sig)
		shutdown(server, app)
	case err := <-errCh:
		log.Printf("component=server msg=%q err=%v", "server failed", err)
		shutdown(server, app)
		os.Exit(1)
	}
}

// startup runs initialize while watching the listener and the signal
// channel. Whichever finishes first decides. A listener error or a signal
// cancels the initialization in flight and waits for it to unwind, so the
// caller can release App resources safely.
func startup(ctx context.Context, initialize func(context.Context) error, serveErr <-chan error, quit <-chan os.Signal) error {
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- initialize(initCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("storage initialization failed: %w", err)
		}
		return nil
	case err := <-serveErr:
		cancel()
		<-done
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		cancel()
		<-done
		return fmt.Errorf("interrupted by %s during initialization", sig)
	}
}

func shutdown(server *http.Server, app *bootstrap.App) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("component=server msg=%q err=%v", "shutdown failed", err)
	}
	if err := app.Close(); err != nil {
		log.Printf("component=bootstrap msg=%q err=%v", "close resources failed", err)
	}
}
