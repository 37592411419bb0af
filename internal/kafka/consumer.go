package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/chess-ranking/internal/config"
	"github.com/chess-ranking/internal/domain"
)

const (
	batchProcessTimeout = 10 * time.Second
	defaultReadyTimeout = 30 * time.Second
	retryBackoff        = time.Second
)

// RegistrationHandler registers players read from Kafka
type RegistrationHandler interface {
	AddPlayer(ctx context.Context, req domain.CreatePlayerRequest) (domain.Player, error)
}

// Consumer consumes player registration messages from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       RegistrationHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	readyTimeout  time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler RegistrationHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	return newConsumer(cfg, consumerGroup, handler, logger), nil
}

func newConsumer(cfg *config.KafkaConfig, group sarama.ConsumerGroup, handler RegistrationHandler, logger *slog.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger.With("component", "kafka_consumer"),
		consumerGroup: group,
		readyTimeout:  defaultReadyTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins consuming messages from Kafka. It returns once the first
// session is set up, or fails and releases the group after readyTimeout.
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	ready := make(chan bool)
	c.wg.Add(1)
	go c.consume(ready)

	// Wait until consumer is ready
	select {
	case <-ready:
		c.logger.Info("Kafka consumer ready")
	case <-time.After(c.readyTimeout):
		if err := c.Stop(); err != nil {
			c.logger.Warn("failed to close consumer group", "error", err)
		}
		return fmt.Errorf("kafka consumer not ready after %s", c.readyTimeout)
	case <-c.ctx.Done():
		return c.ctx.Err()
	}

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// consume runs consumer group sessions until the consumer is stopped. Each
// session closes its own ready channel; Start only waits on the first.
func (c *Consumer) consume(ready chan bool) {
	defer c.wg.Done()
	for {
		handler := &consumerGroupHandler{
			consumer: c,
			ready:    ready,
		}

		if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			c.logger.Error("error from consumer", "error", err)
			select {
			case <-c.ctx.Done():
			case <-time.After(retryBackoff):
			}
		}

		// Check if context was cancelled
		if c.ctx.Err() != nil {
			return
		}

		ready = make(chan bool)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// DecodeRegistration parses a registration message body
func DecodeRegistration(value []byte) (domain.PlayerRegistration, error) {
	var reg domain.PlayerRegistration
	if err := json.Unmarshal(value, &reg); err != nil {
		return domain.PlayerRegistration{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return reg, nil
}

// processBatch registers each player in order. Failures are logged and the
// messages are still committed; registrations are not retried.
func (c *Consumer) processBatch(regs []domain.PlayerRegistration) (registered int) {
	ctx, cancel := context.WithTimeout(context.Background(), batchProcessTimeout)
	defer cancel()

	for _, reg := range regs {
		player, err := c.handler.AddPlayer(ctx, reg.ToRequest())
		if err != nil {
			level := slog.LevelError
			if domain.IsClientError(err) {
				level = slog.LevelWarn
			}
			c.logger.Log(ctx, level, "failed to register player",
				"request_id", reg.RequestID,
				"error", err,
			)
			continue
		}
		registered++
		c.logger.Debug("registered player from kafka",
			"request_id", reg.RequestID,
			"player_id", player.ID,
		)
	}
	return registered
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	logger := h.consumer.logger

	batch := make([]domain.PlayerRegistration, 0, cfg.BatchSize)
	pending := make([]*sarama.ConsumerMessage, 0, cfg.BatchSize)
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	flush := func() {
		if len(batch) > 0 {
			registered := h.consumer.processBatch(batch)
			logger.Debug("processed batch", "batch_size", len(batch), "registered", registered)
		}
		// Offsets are marked only once their registrations have been attempted
		for _, msg := range pending {
			session.MarkMessage(msg, "")
		}
		batch = batch[:0]
		pending = pending[:0]
	}

	for {
		select {
		case <-session.Context().Done():
			flush()
			return nil

		case <-batchTimer.C:
			flush()
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}

			pending = append(pending, message)

			reg, err := DecodeRegistration(message.Value)
			if err != nil {
				logger.Warn("skipping malformed registration",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}
			batch = append(batch, reg)

			if len(batch) >= cfg.BatchSize {
				flush()
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}
