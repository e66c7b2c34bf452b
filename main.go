package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kitchen-ledger/internal/kitchenserver"
	"kitchen-ledger/internal/statssub"
	"kitchen-ledger/pkg/config"
	"kitchen-ledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Extract mode from arguments
	var mode string
	var serviceArgs []string

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
		} else if arg == "--mode" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
			i++ // skip the next argument
		} else {
			serviceArgs = append(serviceArgs, arg)
		}
	}

	if mode == "" {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "kitchen-server":
		if err := kitchenserver.Run(ctx, serviceArgs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "stats-subscriber":
		cfg := config.LoadDotEnv()
		log := logger.NewLogger("stats-subscriber")
		sub := statssub.NewSubscriber(cfg, log)
		if err := sub.Start(ctx); err != nil {
			log.Error("startup", "subscriber_failed", "Stats subscriber failed", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Invalid mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: kitchen-ledger --mode=<service-mode> [service-specific-flags]")
	fmt.Println("Available modes:")
	fmt.Println("  kitchen-server --config-path=config.yaml --ws-port=3000 --report-port=3002")
	fmt.Println("  stats-subscriber")
}
