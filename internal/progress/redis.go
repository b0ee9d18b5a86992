package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "territory:progress:"
	lastPrefix    = "territory:progress:last:"
	lastTTL       = time.Hour
)

// RedisBroker implements Broker over Redis Pub/Sub so progress reaches
// clients connected to any server instance.
type RedisBroker struct {
	rdb    *redis.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[chan Event]*redis.PubSub
}

// NewRedisBroker connects to url (redis://host:port/db)
func NewRedisBroker(ctx context.Context, url string, logger *zap.Logger) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return newRedisBroker(rdb, logger), nil
}

func newRedisBroker(rdb *redis.Client, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{
		rdb:    rdb,
		logger: logger.Named("progress"),
		subs:   map[chan Event]*redis.PubSub{},
	}
}

func (b *RedisBroker) Subscribe(runID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(runID))
	// wait for the subscription to be confirmed
	if _, err := ps.Receive(ctx); err != nil {
		b.logger.Warn("subscribe failed", zap.String("run_id", runID), zap.Error(err))
	}

	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()

	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Debug("dropping malformed event", zap.Error(err))
				continue
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}()
	return ch
}

// Unsubscribe closes the Pub/Sub connection; ch is closed once its reader
// goroutine drains.
func (b *RedisBroker) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(runID string, evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Warn("failed to encode event", zap.Error(err))
		return
	}
	payload := string(data)
	if err := b.rdb.Set(ctx, b.lastKey(runID), payload, lastTTL).Err(); err != nil {
		b.logger.Warn("failed to store last event", zap.String("run_id", runID), zap.Error(err))
	}
	if err := b.rdb.Publish(ctx, b.chanName(runID), payload).Err(); err != nil {
		b.logger.Warn("failed to publish event", zap.String("run_id", runID), zap.Error(err))
	}
}

func (b *RedisBroker) Last(runID string) (Event, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := b.rdb.Get(ctx, b.lastKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return Event{}, false
	}
	if err != nil {
		b.logger.Warn("failed to read last event", zap.String("run_id", runID), zap.Error(err))
		return Event{}, false
	}
	var evt Event
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return Event{}, false
	}
	return evt, true
}

// Close drops all subscriptions and the client
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	for ch, ps := range b.subs {
		_ = ps.Close()
		delete(b.subs, ch)
	}
	b.mu.Unlock()
	return b.rdb.Close()
}

func (b *RedisBroker) chanName(runID string) string { return channelPrefix + runID }
func (b *RedisBroker) lastKey(runID string) string  { return lastPrefix + runID }
