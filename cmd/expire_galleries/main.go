package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"photogallery/internal/app"
	"photogallery/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer a.Close()

	report := a.Expiration.Sweep(ctx)
	log.Printf("gallery expiration completed: found=%d deleted=%d failed=%d freed_bytes=%d",
		report.Found, report.Deleted, report.Failed, report.FreedBytes)
}
