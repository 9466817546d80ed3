// Package store provides the optional Redis persistence mirror for access
// and block state. The in-memory gate and block registry stay authoritative
// (the matchmaking core never asks Redis on the hot path); the mirror is
// written through from the engine's event stream and loaded once at startup,
// so invite authorizations, revocations, and blocks survive a restart.
//
//	Key: access:authorized  -> Set of user IDs
//	Key: access:revoked     -> Set of user IDs
//	Key: blocks             -> Set of "<lo>:<hi>" pair entries
package store

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftchat/strangerbot/internal/events"
)

const (
	keyAuthorized = "access:authorized"
	keyRevoked    = "access:revoked"
	keyBlocks     = "blocks"

	writeTimeout = 3 * time.Second
	writeBacklog = 256
)

// Redis is the persistence mirror. Writes run on a dedicated worker
// goroutine so the Sink hand-off never blocks the caller.
type Redis struct {
	client *redis.Client
	writes chan events.Event
	done   chan struct{}
}

// NewRedis connects to Redis, verifies the connection, and starts the
// write-through worker.
func NewRedis(addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: redis connection failed: %w", err)
	}

	s := &Redis{
		client: client,
		writes: make(chan events.Event, writeBacklog),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

// LoadAccess returns the persisted authorized and revoked user ID sets.
func (s *Redis) LoadAccess(ctx context.Context) (authorized, revoked []int64, err error) {
	authorized, err = s.loadIDSet(ctx, keyAuthorized)
	if err != nil {
		return nil, nil, err
	}
	revoked, err = s.loadIDSet(ctx, keyRevoked)
	if err != nil {
		return nil, nil, err
	}
	return authorized, revoked, nil
}

func (s *Redis) loadIDSet(ctx context.Context, key string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", key, err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Printf("[store] skipping malformed member %q in %s", m, key)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadBlocks returns the persisted block pairs as (lo, hi) tuples.
func (s *Redis) LoadBlocks(ctx context.Context) ([][2]int64, error) {
	members, err := s.client.SMembers(ctx, keyBlocks).Result()
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", keyBlocks, err)
	}

	pairs := make([][2]int64, 0, len(members))
	for _, m := range members {
		lo, hi, ok := parsePair(m)
		if !ok {
			log.Printf("[store] skipping malformed block pair %q", m)
			continue
		}
		pairs = append(pairs, [2]int64{lo, hi})
	}
	return pairs, nil
}

func pairMember(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}

func parsePair(member string) (lo, hi int64, ok bool) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseInt(parts[0], 10, 64)
	hi, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// Publish implements events.Sink: access and block events are handed to the
// write-through worker, everything else is ignored. The hand-off never
// blocks; a caller holding the engine lock must not stall on Redis. With the
// backlog full (a Redis outage) events are dropped and the in-memory state
// stays authoritative.
func (s *Redis) Publish(e events.Event) {
	switch e.Type {
	case events.TypeUserAuthorized, events.TypeUserAllowed,
		events.TypeUserRevoked, events.TypeBlockAdded:
	default:
		return
	}

	select {
	case s.writes <- e:
	default:
		log.Printf("[store] write-through backlog full, dropping %s", e.Type)
	}
}

func (s *Redis) writeLoop() {
	defer close(s.done)
	for e := range s.writes {
		s.write(e)
	}
}

func (s *Redis) write(e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch e.Type {
	case events.TypeUserAuthorized:
		err = s.client.SAdd(ctx, keyAuthorized, strconv.FormatInt(e.UserA, 10)).Err()
	case events.TypeUserAllowed:
		pipe := s.client.Pipeline()
		pipe.SAdd(ctx, keyAuthorized, strconv.FormatInt(e.UserA, 10))
		pipe.SRem(ctx, keyRevoked, strconv.FormatInt(e.UserA, 10))
		_, err = pipe.Exec(ctx)
	case events.TypeUserRevoked:
		err = s.client.SAdd(ctx, keyRevoked, strconv.FormatInt(e.UserA, 10)).Err()
	case events.TypeBlockAdded:
		err = s.client.SAdd(ctx, keyBlocks, pairMember(e.UserA, e.UserB)).Err()
	}

	if err != nil {
		log.Printf("[store] write-through %s: %v", e.Type, err)
	}
}

// Close flushes the pending write-throughs and closes the connection. No
// Publish may run concurrently with or after Close.
func (s *Redis) Close() error {
	close(s.writes)
	<-s.done
	return s.client.Close()
}
