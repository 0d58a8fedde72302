// auctionwatch follows live auctions from the terminal.
//
// Usage:
//
//	auctionwatch [-config path] [-log-level level] <command> [flags] [args]
//
// Commands:
//
//	watch   ID...        follow auctions until interrupted
//	bid     ID AMOUNT    place one bid
//	feed                 page through the auction feed
//	history ID           print the bid history of an auction
//	version              print build information
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // api.time_zone on hosts without a zoneinfo database

	"github.com/rickgao/auction-live/internal/config"
	"github.com/rickgao/auction-live/internal/version"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"watch", "watch [-history] ID...", runWatch},
	{"bid", "bid ID AMOUNT", runBid},
	{"feed", "feed [-category c] [-status s] [-keyword k] [-sort s] [-pages n]", runFeed},
	{"history", "history [-pages n] ID", runHistory},
}

var errUsage = errors.New("usage")

func main() {
	configPath := flag.String("config", "configs/auctionwatch.example.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]

	if name == "version" {
		fmt.Println("auctionwatch", version.String())
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level: %v\n", err)
		os.Exit(2)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	err = cmd.run(ctx, a, args)
	a.close()

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "usage: auctionwatch %s\n", cmd.usage)
		os.Exit(2)
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Error(name+" failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: auctionwatch [flags] <command> [args]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
	fmt.Fprintf(os.Stderr, "  version\n\nflags:\n")
	flag.PrintDefaults()
}
