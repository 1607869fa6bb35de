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

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"arenasync/server"
)

// 入口：启动 HTTP + WebSocket 服务、过期清扫，并在收到信号时优雅退出
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	cfg, err := server.LoadConfig(args, ".env")
	if err != nil {
		return err
	}
	log, err := server.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, server.SyncLogger(log))
	}()

	hub := server.NewHub(cfg, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", server.NewWSHandler(hub, log, cfg.SendQueue))
	server.NewAdmin(hub, log).Register(mux)
	// 客户端静态资源
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("arena relay listening on %s (ws endpoint: /ws)", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return hub.RunSweeper(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownCtx)
		hub.Shutdown()
		return shutdownErr
	})

	return g.Wait()
}
