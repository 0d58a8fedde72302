// streamtest subscribes to one push topic and prints decoded events to the console.
// Usage: go run ./cmd/streamtest --config configs/auctionwatch.example.yaml --topic auction:42
//
// Topics are "auction:<id>", "user:<id>" or "home:". A bare id is an auction topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/auction-live/internal/config"
	"github.com/rickgao/auction-live/internal/connection"
	"github.com/rickgao/auction-live/internal/model"
)

func main() {
	configPath := flag.String("config", "configs/auctionwatch.example.yaml", "path to config file")
	topicFlag := flag.String("topic", "", "topic to subscribe to, e.g. auction:42")
	transport := flag.String("transport", "", "override stream.transport (sse or websocket)")
	verbose := flag.Bool("verbose", false, "print keep-alives and raw notice bodies")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	topic, err := connection.ParseTopic(*topicFlag)
	if err != nil {
		logger.Error("invalid -topic", "error", err)
		os.Exit(2)
	}

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Stream.Transport = *transport
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	channel := connection.NewChannel(connection.ChannelConfig{
		BaseURL:         cfg.API.StreamURL,
		Token:           cfg.API.Token,
		Transport:       connection.Transport(cfg.Stream.Transport),
		PingTimeout:     cfg.Stream.PingTimeout,
		WriteTimeout:    cfg.Stream.WriteTimeout,
		BufferSize:      cfg.Stream.BufferSize,
		EventBufferSize: cfg.Stream.EventBufferSize,
	}, logger)

	url, err := channel.TopicURL(topic)
	if err != nil {
		logger.Error("no stream path for topic", "error", err)
		os.Exit(1)
	}
	logger.Info("subscribing", "topic", topic.String(), "url", url, "transport", cfg.Stream.Transport)

	sub, err := channel.Subscribe(ctx, topic)
	if err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}
	defer sub.Cancel()

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := sub.Stats()
				logger.Info("stats",
					"frames_received", stats.FramesReceived,
					"events_delivered", stats.EventsDelivered,
					"frames_dropped", stats.FramesDropped,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete")
			return
		case ev, ok := <-sub.Events():
			if !ok {
				logger.Info("subscription ended")
				return
			}
			printEvent(ev, *verbose)
		}
	}
}

func printEvent(ev model.PushEvent, verbose bool) {
	switch e := ev.(type) {
	case model.BidUpdate:
		fmt.Printf("[BID] auction=%s price=%d count=%d bidder=%q\n",
			e.AuctionID, e.CurrentHighestBid, e.BidCount, e.BidderLabel)
	case model.ConnectionEvent:
		if e.Err != nil {
			fmt.Printf("[CONNECTION] %s: %v\n", e.Kind, e.Err)
		} else {
			fmt.Printf("[CONNECTION] %s\n", e.Kind)
		}
	case model.KeepAlive:
		if verbose {
			fmt.Println("[KEEPALIVE]")
		}
	case model.Notice:
		if verbose {
			fmt.Printf("[NOTICE] topic=%s kind=%s body=%s\n", e.Topic, e.Kind, e.Body)
		} else {
			fmt.Printf("[NOTICE] topic=%s kind=%s bytes=%d\n", e.Topic, e.Kind, len(e.Body))
		}
	}
}
