package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JaimeStill/mention-analyzer/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("env file load failed: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}
	if !cfg.QueueDispatch() {
		log.Fatalf("worker requires dispatch = %q, got %q", config.DispatchQueue, cfg.Dispatch)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		log.Fatal("worker init failed: ", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatal("worker failed: ", err)
	}
}
