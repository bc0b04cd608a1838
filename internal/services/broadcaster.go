package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oddscope/matchpulse/internal/database"
	"github.com/oddscope/matchpulse/internal/models"
)

const (
	eventsChannel      = "matchpulse:events"
	predictionsChannel = "matchpulse:predictions"

	subscriberBuffer = 16
)

// BroadcastKind separates the two event streams on the shared hub.
type BroadcastKind string

const (
	BroadcastMatchEvent BroadcastKind = "match_event"
	BroadcastPrediction BroadcastKind = "prediction"
)

// BroadcastMessage is the envelope delivered to subscribers.
type BroadcastMessage struct {
	Kind    BroadcastKind `json:"kind"`
	Payload interface{}   `json:"payload"`
	SentAt  time.Time     `json:"sent_at"`
}

// Broadcaster fans events out to in-process subscribers and mirrors
// them to redis pub/sub when a client is configured. Delivery is
// at-most-once: a subscriber that falls behind loses messages rather
// than stalling the publisher.
type Broadcaster struct {
	redis  *database.RedisClient
	logger *logrus.Entry

	mu      sync.RWMutex
	subs    map[uuid.UUID]chan BroadcastMessage
	dropped int64
}

func NewBroadcaster(redisClient *database.RedisClient) *Broadcaster {
	return &Broadcaster{
		redis:  redisClient,
		logger: logrus.WithField("component", "broadcaster"),
		subs:   make(map[uuid.UUID]chan BroadcastMessage),
	}
}

// Subscribe registers a new subscriber channel. The returned id is the
// handle for Unsubscribe.
func (b *Broadcaster) Subscribe() (uuid.UUID, <-chan BroadcastMessage) {
	id := uuid.New()
	ch := make(chan BroadcastMessage, subscriberBuffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Subscribers reports the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports messages discarded because a subscriber was full.
func (b *Broadcaster) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// PublishMatchEvent fans a score/status change out to subscribers and
// to the redis events channel.
func (b *Broadcaster) PublishMatchEvent(ctx context.Context, event *models.MatchEvent) {
	b.publish(ctx, eventsChannel, BroadcastMessage{
		Kind:    BroadcastMatchEvent,
		Payload: event,
		SentAt:  time.Now().UTC(),
	})
}

// PublishPrediction fans a prediction refresh out to subscribers and
// to the redis predictions channel.
func (b *Broadcaster) PublishPrediction(ctx context.Context, update interface{}) {
	b.publish(ctx, predictionsChannel, BroadcastMessage{
		Kind:    BroadcastPrediction,
		Payload: update,
		SentAt:  time.Now().UTC(),
	})
}

func (b *Broadcaster) publish(ctx context.Context, channel string, msg BroadcastMessage) {
	b.mu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			b.dropped++
		}
	}
	b.mu.Unlock()

	if b.redis == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.WithError(err).Warn("Failed to encode broadcast message")
		return
	}
	if err := b.redis.Publish(ctx, channel, payload); err != nil {
		b.logger.WithError(err).Debug("Redis publish failed")
	}
}
