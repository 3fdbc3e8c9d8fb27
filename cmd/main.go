package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yungbote/lms-backend/internal/app"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	application.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(":" + application.Cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			application.Log.Error("Server failed", "error", err)
			application.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		application.Log.Info("Shutdown signal received")
	}
	application.Close()
}
