package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/config"
)

const (
	dialTimeout      = 10 * time.Second
	topicVisibleWait = 10 * time.Second
	replicationOne   = 1
)

// EnsureTopics creates the command and event topics when they are missing.
func EnsureTopics(ctx context.Context, cfg config.Kafka, logger *zap.Logger) error {
	for _, topic := range []string{cfg.CommandTopic, cfg.EventTopic} {
		if err := EnsureTopic(ctx, cfg.Brokers, topic, cfg.Partitions, replicationOne, logger); err != nil {
			return fmt.Errorf("ensure topic %s: %w", topic, err)
		}
	}
	return nil
}

// EnsureTopic creates topic on the controller if no broker knows it yet and
// waits until its partitions show up in metadata. An "already exists" reply
// from a concurrent creator counts as success.
func EnsureTopic(ctx context.Context, brokers []string, topic string, partitions, replication int, logger *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	if strings.TrimSpace(topic) == "" {
		return errors.New("empty topic")
	}
	if partitions < 1 {
		partitions = 1
	}

	dialer := &kafkago.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	if parts, err := conn.ReadPartitions(topic); err == nil && len(parts) > 0 {
		logger.Info("kafka topic exists", zap.String("topic", topic), zap.Int("partitions", len(parts)))
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrl, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer ctrl.Close()

	logger.Info("creating kafka topic",
		zap.String("topic", topic),
		zap.Int("partitions", partitions),
		zap.Int("replication", replication),
	)
	err = ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	})
	if err != nil && !isTopicExists(err) {
		return fmt.Errorf("create topic: %w", err)
	}

	return waitPartitions(ctx, conn, topic, partitions, logger)
}

func waitPartitions(ctx context.Context, conn *kafkago.Conn, topic string, want int, logger *zap.Logger) error {
	deadline := time.Now().Add(topicVisibleWait)
	for {
		parts, err := conn.ReadPartitions(topic)
		if err == nil && len(parts) >= want {
			logger.Info("kafka topic is ready", zap.String("topic", topic), zap.Int("partitions", len(parts)))
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("topic %s not visible after creation", topic)
		}
		sleepWithContext(ctx, 500*time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func isTopicExists(err error) bool {
	return errors.Is(err, kafkago.TopicAlreadyExists) ||
		strings.Contains(strings.ToLower(err.Error()), "exists")
}
