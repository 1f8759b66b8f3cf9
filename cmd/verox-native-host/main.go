// Command verox-native-host is the executable a browser manifest points at.
// It serves native messaging on stdin and stdout and logs to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"verox/go-wallet/internal/app"
	"verox/go-wallet/internal/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Wallet data directory (optional)")
	// Browsers append the caller origin (and on Windows a window handle) as
	// positional arguments; flag.Parse stops at the first one.
	flag.Parse()
	if *showVersion {
		fmt.Printf("verox-native-host version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		log.Fatalf("verox-native-host failed to load config: %v", err)
	}
	rt, err := app.New(cfg, app.Options{LogWriter: os.Stderr})
	if err != nil {
		log.Fatalf("verox-native-host failed to initialize: %v", err)
	}
	srv, err := rt.NativeHost()
	if err != nil {
		log.Fatalf("verox-native-host failed to initialize: %v", err)
	}

	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		_ = rt.Close()
		log.Fatalf("verox-native-host failed: %v", err)
	}
	if err := rt.Close(); err != nil {
		log.Printf("verox-native-host: %v", err)
	}
}
