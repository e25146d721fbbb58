package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"photogallery/internal/app"
	"photogallery/internal/config"
)

// worker runs the sync schedulers, the expiration worker and the refresh
// queue consumer until SIGINT or SIGTERM.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer a.Close()

	log.Printf("worker started: schedulers=%d queue=%t", len(a.Schedulers), a.Consumer != nil)
	if err := a.RunBackground(ctx); err != nil {
		log.Printf("worker stopped with error: %v", err)
		return
	}
	log.Println("worker stopped")
}
