package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/as00paf/kpoker/internal/config"
	"github.com/as00paf/kpoker/internal/models"
)

const queueKey = "kpoker:hand_history"

// Publisher pushes settled hand results onto a Redis list for an external
// historian to drain. Everything about it is best-effort: a nil Publisher is
// valid and publish failures are only logged.
type Publisher struct {
	client *redis.Client
	log    *logrus.Entry
}

// New connects to Redis, or returns (nil, nil) when no address is configured.
func New(cfg config.RedisConfig) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Publisher{
		client: client,
		log:    logrus.WithField("component", "history"),
	}, nil
}

type record struct {
	RoomID     string             `json:"roomId"`
	FinishedAt time.Time          `json:"finishedAt"`
	Result     *models.HandResult `json:"result"`
}

// PublishHandResult appends one hand record to the queue.
func (p *Publisher) PublishHandResult(ctx context.Context, roomID string, result *models.HandResult) {
	if p == nil || result == nil {
		return
	}
	payload, err := json.Marshal(record{
		RoomID:     roomID,
		FinishedAt: time.Now().UTC(),
		Result:     result,
	})
	if err != nil {
		p.log.WithError(err).Warn("encoding hand record")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.client.RPush(ctx, queueKey, payload).Err(); err != nil {
		p.log.WithError(err).Warn("publishing hand record")
	}
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
