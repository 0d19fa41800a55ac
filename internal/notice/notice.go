// Package notice stores one-time admin notices: each notice is shown on the
// next admin page render and then cleared.
package notice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/common-repository/sms-manager/internal/cache"
	"github.com/common-repository/sms-manager/internal/metrics"
)

const listKey = "smsm:flash_notices"

// Notice types mirror the admin notice levels.
const (
	TypeSuccess = "success"
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeError   = "error"
)

// Notice is a single one-time admin message.
type Notice struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Store keeps pending notices in a Redis list so they survive process
// restarts until displayed.
type Store struct {
	redis   *cache.Redis
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewStore returns a Redis-backed notice store.
func NewStore(redis *cache.Redis, logger *slog.Logger, metricRegistry *metrics.Metrics) *Store {
	return &Store{
		redis:   redis,
		logger:  logger.With("component", "notice"),
		metrics: metricRegistry,
	}
}

// Add queues a notice for the next admin render.
func (s *Store) Add(ctx context.Context, n Notice) error {
	if n.Type == "" {
		n.Type = TypeSuccess
	}
	if err := s.redis.PushJSON(ctx, listKey, n); err != nil {
		return fmt.Errorf("queue notice: %w", err)
	}
	if s.metrics != nil {
		s.metrics.NoticesPushed.Inc()
	}
	return nil
}

// PopAll drains and returns all pending notices in insertion order.
func (s *Store) PopAll(ctx context.Context) ([]Notice, error) {
	raw, err := s.redis.PopAllJSON(ctx, listKey)
	if err != nil {
		return nil, fmt.Errorf("drain notices: %w", err)
	}

	notices := make([]Notice, 0, len(raw))
	for _, item := range raw {
		var n Notice
		if err := json.Unmarshal(item, &n); err != nil {
			s.logger.Warn("dropping malformed notice", "error", err)
			continue
		}
		notices = append(notices, n)
	}
	return notices, nil
}
