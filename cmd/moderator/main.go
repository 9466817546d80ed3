package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"github.com/driftchat/strangerbot/internal/events"
	"github.com/driftchat/strangerbot/internal/report"
)

func main() {
	log.Println("Starting moderation sidecar...")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = events.DefaultNATSConfig().URL
	}

	migrationsDir := "migrations"
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		migrationsDir = v
	}

	// --- Schema ---
	m, err := migrate.New("file://"+migrationsDir, databaseURL)
	if err != nil {
		log.Fatalf("failed to init migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("failed to run migrations: %v", err)
	}
	m.Close()

	// --- PostgreSQL ---
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("failed to connect to database: %v", err)
	}
	pingCancel()

	archive := report.NewArchive(db)

	// --- NATS ---
	natsConfig := events.DefaultNATSConfig()
	natsConfig.URL = natsURL
	natsConfig.Name = "strangerbot-moderator"

	nc, err := nats.Connect(natsConfig.URL,
		nats.Name(natsConfig.Name),
		nats.ReconnectWait(natsConfig.ReconnectWait),
		nats.MaxReconnects(natsConfig.MaxReconnects),
	)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	sub, err := events.SubscribeReports(nc, func(e events.Event) {
		log.Printf("[moderator] report chat=%s reporter=%d reported=%d count=%d",
			e.ChatID, e.UserA, e.UserB, e.Count)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := archive.Insert(ctx, &report.ArchivedReport{
			ReporterID: e.UserA,
			ReportedID: e.UserB,
			ChatID:     e.ChatID,
			Count:      e.Count,
		})
		if err != nil {
			log.Printf("[moderator] archive report: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to report events: %v", err)
	}

	log.Printf("Moderation sidecar running")
	log.Printf("  nats_url: %s", natsConfig.URL)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	if err := sub.Drain(); err != nil {
		log.Printf("[moderator] drain subscription: %v", err)
	}
	nc.Drain()
	db.Close()
}
