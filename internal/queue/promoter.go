package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/mention-analyzer/internal/config"
	"github.com/JaimeStill/mention-analyzer/internal/metrics"
)

// promoteScript moves due members of the delayed set onto the stream in one
// atomic step so a retry is never both scheduled and delivered.
//
// KEYS[1] delayed set, KEYS[2] stream. ARGV[1] now in ms, ARGV[2] batch limit.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
	local entry = cjson.decode(member)
	redis.call('XADD', KEYS[2], '*',
		'mention_id', entry.mention_id,
		'text', entry.text,
		'attempt', tostring(entry.attempt),
		'last_error', entry.last_error or '')
	redis.call('ZREM', KEYS[1], member)
end
return #due
`)

// Promoter periodically moves delayed retries whose time has come onto the stream.
type Promoter struct {
	client     *redis.Client
	stream     string
	delayedKey string
	interval   time.Duration
	batchSize  int64
	logger     *slog.Logger
}

// NewPromoter creates a Promoter from queue configuration.
func NewPromoter(client *redis.Client, cfg *config.QueueConfig, logger *slog.Logger) *Promoter {
	return &Promoter{
		client:     client,
		stream:     cfg.Stream,
		delayedKey: cfg.DelayedKey,
		interval:   cfg.PromoteIntervalDuration(),
		batchSize:  max(cfg.BatchSize, 1) * 10,
		logger:     logger.With("system", "promoter", "stream", cfg.Stream),
	}
}

// Run promotes on every interval until ctx is done.
func (p *Promoter) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("promoter started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("promoter stopping")
			return nil
		case <-ticker.C:
			if _, err := p.PromoteOnce(ctx, time.Now()); err != nil && ctx.Err() == nil {
				p.logger.Error("promote cycle error", "error", err)
			}
		}
	}
}

// PromoteOnce moves retries due at or before now and returns how many moved.
func (p *Promoter) PromoteOnce(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, p.client,
		[]string{p.delayedKey, p.stream},
		now.UnixMilli(), p.batchSize,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed: %w", err)
	}

	if n > 0 {
		metrics.QueuePromotedTotal.Add(float64(n))
		p.logger.Debug("promoted delayed retries", "count", n)
	}

	return n, nil
}
