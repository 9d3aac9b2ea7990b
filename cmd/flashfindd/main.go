// flashfindd is the FlashFind indexing daemon: it loads configuration,
// starts the Engine Facade (index load, filesystem watcher, startup
// crawl), and blocks until asked to shut down.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flashfind/config"
	"flashfind/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	f := engine.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := f.Start(ctx); err != nil {
		log.Fatalf("startup error: %v", err)
	}
	engine.LogStartup(cfg, f)

	<-ctx.Done()
	log.Println("flashfindd: shutting down")

	if err := f.Close(); err != nil {
		log.Printf("flashfindd: shutdown error: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}
