package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"golang.org/x/time/rate"
)

// Exporter runs one export attempt.
type Exporter interface {
	Export(ctx context.Context, appID, uploadID string) (*models.ExportResult, error)
}

type ConsumerConfig struct {
	Workers int
	// DispatchRate caps deliveries handed to workers per second. Zero means
	// unlimited.
	DispatchRate float64
	BatchSize    int
	BlockFor     time.Duration
	LeaseTTL     time.Duration
}

// Consumer pulls deliveries from a Source and runs them through the
// Exporter on a worker pool. Work on one upload is serialized in-process by
// a keyed mutex and, when a Lease is configured, across processes too.
type Consumer struct {
	source   Source
	exporter Exporter
	lease    Lease
	locks    *keyedMutex
	limiter  *rate.Limiter
	config   ConsumerConfig
	logger   logging.Logger

	retryDelay time.Duration
}

// NewConsumer builds a consumer. lease may be nil.
func NewConsumer(src Source, exp Exporter, lease Lease, cfg ConsumerConfig, l logging.Logger) *Consumer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = cfg.Workers
	}
	if cfg.BlockFor <= 0 {
		cfg.BlockFor = time.Second
	}
	limit := rate.Inf
	if cfg.DispatchRate > 0 {
		limit = rate.Limit(cfg.DispatchRate)
	}
	return &Consumer{
		source:     src,
		exporter:   exp,
		lease:      lease,
		locks:      newKeyedMutex(),
		limiter:    rate.NewLimiter(limit, cfg.Workers),
		config:     cfg,
		logger:     l.With("module", "queue_consumer"),
		retryDelay: time.Second,
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight exports.
func (c *Consumer) Run(ctx context.Context) error {
	jobs := make(chan Delivery)
	var wg sync.WaitGroup

	for i := 0; i < c.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				// an export that started writing runs to completion
				_ = c.Handle(context.WithoutCancel(ctx), d)
			}
		}()
	}

	c.logger.Info(ctx, "consumer started", "workers", c.config.Workers)
	defer func() {
		close(jobs)
		wg.Wait()
		c.logger.Info(context.Background(), "consumer stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		batch, err := c.source.Receive(ctx, c.config.BatchSize, c.config.BlockFor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn(ctx, "receive failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		for _, d := range batch {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil
			}
			select {
			case jobs <- d:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Handle processes one delivery and acknowledges it when the outcome is
// final: success, a skip by policy, or a terminal error. Transient errors
// and a held lease leave the delivery un-acknowledged for redelivery.
func (c *Consumer) Handle(ctx context.Context, d Delivery) error {
	l := c.logger.With("delivery_id", d.ID)

	msg, err := Decode(d.Body)
	if err != nil {
		l.Error(ctx, "dropping invalid message", "error", err)
		c.ack(ctx, l, d)
		return err
	}
	l = l.With("upload_id", msg.UploadID, "app_id", msg.AppID, "redrive", msg.Redrive)

	unlock := c.locks.Lock(msg.UploadID)
	defer unlock()

	if c.lease != nil {
		release, err := c.lease.Acquire(ctx, msg.UploadID, c.config.LeaseTTL)
		if err != nil {
			if errors.Is(err, common.ErrLeaseHeld) {
				l.Info(ctx, "upload leased elsewhere, leaving for redelivery")
			} else {
				l.Warn(ctx, "lease unavailable", "error", err)
			}
			return err
		}
		defer func() {
			if err := release(ctx); err != nil {
				l.Warn(ctx, "lease release failed", "error", err)
			}
		}()
	}

	res, err := c.exporter.Export(ctx, msg.AppID, msg.UploadID)
	if err != nil {
		if common.IsTerminal(err) {
			l.Error(ctx, "export failed permanently, acknowledging", "error", err)
			c.ack(ctx, l, d)
		} else {
			l.Warn(ctx, "export failed, leaving for redelivery", "error", err)
		}
		return err
	}

	l.Debug(ctx, "export handled", "outcome", string(res.Outcome))
	c.ack(ctx, l, d)
	return nil
}

func (c *Consumer) ack(ctx context.Context, l logging.Logger, d Delivery) {
	if err := c.source.Ack(ctx, d.ID); err != nil {
		l.Warn(ctx, "ack failed", "error", err)
	}
}
