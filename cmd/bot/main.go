package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/driftchat/strangerbot/internal/auth"
	"github.com/driftchat/strangerbot/internal/block"
	"github.com/driftchat/strangerbot/internal/engine"
	"github.com/driftchat/strangerbot/internal/events"
	"github.com/driftchat/strangerbot/internal/feed"
	"github.com/driftchat/strangerbot/internal/metrics"
	"github.com/driftchat/strangerbot/internal/pacer"
	"github.com/driftchat/strangerbot/internal/store"
	"github.com/driftchat/strangerbot/internal/telegram"
)

func main() {
	log.Println("Starting stranger relay bot...")

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	var ownerID int64
	if v := os.Getenv("OWNER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid OWNER_ID %q: %v", v, err)
		}
		ownerID = id
	}

	var codes []string
	if v := os.Getenv("INVITE_CODES"); v != "" {
		codes = strings.Split(v, ",")
	}

	httpAddr := ":9090"
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		httpAddr = v
	}

	pacerCfg := pacer.DefaultConfig()
	if v := os.Getenv("PACE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			pacerCfg.Delay = d
		}
	}
	if v := os.Getenv("QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pacerCfg.Capacity = n
		}
	}

	gate := auth.NewGate(codes)
	blocks := block.NewRegistry()

	// --- Redis persistence mirror (optional) ---
	var mirror *store.Redis
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		var err error
		mirror, err = store.NewRedis(addr)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		authorized, revoked, err := mirror.LoadAccess(ctx)
		if err != nil {
			cancel()
			log.Fatalf("failed to load access state: %v", err)
		}
		gate.Restore(authorized, revoked)

		pairs, err := mirror.LoadBlocks(ctx)
		cancel()
		if err != nil {
			log.Fatalf("failed to load block state: %v", err)
		}
		for _, p := range pairs {
			blocks.Add(p[0], p[1])
		}
		log.Printf("[store] restored %d authorized, %d revoked, %d blocks",
			len(authorized), len(revoked), len(pairs))
	}

	// --- NATS event publishing (optional) ---
	var publisher *events.NATSPublisher
	if url := os.Getenv("NATS_URL"); url != "" {
		natsConfig := events.DefaultNATSConfig()
		natsConfig.URL = url
		var err error
		publisher, err = events.NewNATSPublisher(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
	}

	// --- Operator feed + event fan-out ---
	broadcaster := feed.NewBroadcaster()
	sinks := []events.Sink{broadcaster}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	if mirror != nil {
		sinks = append(sinks, mirror)
	}
	sink := events.Fanout(sinks...)

	// --- Transport + engine ---
	transport, err := telegram.NewTransport(token)
	if err != nil {
		log.Fatalf("failed to create Telegram transport: %v", err)
	}

	eng := engine.New(engine.Config{
		OwnerID: ownerID,
		Pacer:   pacerCfg,
	}, gate, blocks, transport, sink)

	// --- HTTP server: metrics + live feed ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/feed", broadcaster.Handler())
	httpServer := &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	log.Printf("Stranger relay bot running")
	log.Printf("  owner_id:       %d", ownerID)
	log.Printf("  invite_codes:   %d configured", len(codes))
	log.Printf("  pace_delay:     %s", pacerCfg.Delay)
	log.Printf("  queue_capacity: %d", pacerCfg.Capacity)
	log.Printf("  http_addr:      %s", httpAddr)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- transport.Run(ctx, eng)
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
		// No engine operation may publish to the sinks once they start
		// closing, so wait for the update loop to stop dispatching.
		if err := <-runErr; err != nil {
			log.Printf("update loop stopped: %v", err)
		}
	case err := <-runErr:
		if err != nil {
			log.Printf("update loop stopped: %v", err)
		}
		cancel()
	}

	eng.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	httpServer.Shutdown(shutdownCtx)
	shutdownCancel()

	if publisher != nil {
		publisher.Close()
	}
	if mirror != nil {
		mirror.Close()
	}
}
