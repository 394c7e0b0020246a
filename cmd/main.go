package main

import (
	"os"
	"os/signal"
	"syscall"

	"adaptivepool/pkg/logger"
)

func main() {
	app := NewApplication()

	if err := app.Initialize(); err != nil {
		logger.Fatalf("application initialization failed: %v", err)
	}

	app.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Infof("received exit signal: %v", sig)

	app.Shutdown()
	logger.Info("application safely exited")
}
