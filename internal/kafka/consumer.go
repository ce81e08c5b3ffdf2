package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/config"
	"github.com/TemirB/wb-tech-orders/internal/pkg/pool"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type backoff struct {
	idle  time.Duration
	fetch time.Duration

	// failed is the first pause before a failed message is handled again.
	// It doubles up to failedMax.
	failed    time.Duration
	failedMax time.Duration
}

var defaultBackoff = backoff{
	idle:      10 * time.Second,
	fetch:     500 * time.Millisecond,
	failed:    200 * time.Millisecond,
	failedMax: 5 * time.Second,
}

// Consumer feeds place-order commands to a worker pool. Messages are handled
// in parallel, but offsets are committed in fetch order and only once every
// earlier message has been handled successfully.
type Consumer struct {
	handler MessageHandler
	reader  Reader
	zlogger *zap.Logger
	backoff backoff

	workerPoolSize int
}

func NewConsumer(handler MessageHandler, reader Reader, workers int, logger *zap.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		handler:        handler,
		reader:         reader,
		zlogger:        logger,
		backoff:        defaultBackoff,
		workerPoolSize: workers,
	}
}

// NewReader builds a group reader for the command topic.
func NewReader(cfg config.Kafka) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.Group,
		Topic:          cfg.CommandTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
}

// inflight is a fetched message waiting for its worker result.
type inflight struct {
	msg  kafkago.Message
	done chan error
}

// Start blocks until ctx is done, then waits for the committer and the
// workers to return.
func (c *Consumer) Start(ctx context.Context) {
	rc := c.reader.Config()
	c.zlogger.Info("Starting Kafka consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
		zap.Int("workers", c.workerPoolSize),
	)

	workers := pool.New(c.workerPoolSize)
	pending := make(chan inflight, c.workerPoolSize*2)
	committerDone := make(chan struct{})
	go func() {
		defer close(committerDone)
		c.commitInOrder(ctx, pending)
	}()
	defer func() {
		close(pending)
		<-committerDone
		workers.Close()
		workers.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if isBenignFetchTimeout(err) {
				c.zlogger.Debug("fetch timeout (idle), backing off", zap.Error(err))
				sleepWithContext(ctx, c.backoff.idle)
				continue
			}
			c.zlogger.Warn("FetchMessage error, backing off", zap.Error(err))
			sleepWithContext(ctx, c.backoff.fetch)
			continue
		}

		// Queue the slot before the job so the committer sees fetch order.
		job := inflight{msg: msg, done: make(chan error, 1)}
		select {
		case pending <- job:
		case <-ctx.Done():
			return
		}
		if err := workers.Submit(ctx, func() { job.done <- c.handleUntilDone(ctx, job.msg) }); err != nil {
			return
		}
	}
}

// commitInOrder commits pending messages one by one in the order they were
// fetched. It waits for each message's result, so a later offset is never
// committed ahead of an earlier one that has not been handled.
func (c *Consumer) commitInOrder(ctx context.Context, pending <-chan inflight) {
	for job := range pending {
		var err error
		select {
		case err = <-job.done:
		case <-ctx.Done():
			return
		}
		if err != nil {
			// Only a cancelled context ends handling without success.
			return
		}

		msg := job.msg
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.zlogger.Warn("commit failed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			continue
		}
		c.zlogger.Debug("message committed",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
	}
}

// handleUntilDone hands msg to the handler until it succeeds or ctx is done.
// A failed message is never skipped, because committing anything after it
// would move the group offset past it.
func (c *Consumer) handleUntilDone(ctx context.Context, msg kafkago.Message) error {
	delay := c.backoff.failed
	for attempt := 1; ; attempt++ {
		err := c.process(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.zlogger.Warn("handler failed; handling again",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		sleepWithContext(ctx, delay)
		if delay *= 2; delay > c.backoff.failedMax {
			delay = c.backoff.failedMax
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafkago.Message) error {
	start := time.Now()
	err := c.handler.Handle(ctx, msg)
	elapsed := time.Since(start)
	if err != nil {
		c.zlogger.Error("message handling failed",
			zap.Error(err),
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Duration("elapsed", elapsed),
		)
		return err
	}
	c.zlogger.Debug("message handled",
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Int("value_bytes", len(msg.Value)),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}
