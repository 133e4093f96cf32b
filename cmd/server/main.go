package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/exprbox/exprbox/internal/infrastructure/config"
	"github.com/exprbox/exprbox/internal/infrastructure/server"
)

func main() {
	port := flag.Int("port", 0, "listen port (overrides EXPRBOX_SERVER_PORT)")
	snapshotDir := flag.String("snapshots", "", "snapshot directory (overrides EXPRBOX_RESOLVER_SNAPSHOT_DIR)")
	watch := flag.Bool("watch", false, "reload snapshots on file changes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *snapshotDir != "" {
		cfg.Resolver.SnapshotDir = *snapshotDir
	}
	if *watch {
		cfg.Resolver.Watch = true
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("server init: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("server: %v", err)
	}
}
