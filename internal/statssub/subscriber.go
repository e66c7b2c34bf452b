package statssub

import (
	"context"
	"encoding/json"
	"fmt"

	"kitchen-ledger/pkg/config"
	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"
	"kitchen-ledger/pkg/rabbitmq"
)

// Subscriber consumes table close-out events from the fanout exchange and
// keeps a running total per day. It is a side display: the archive inside
// the kitchen server stays the authoritative record.
type Subscriber struct {
	config   *config.Config
	logger   *logger.Logger
	rabbitMQ *rabbitmq.RabbitMQ

	revenueByDate map[string]float64
	ordersByDate  map[string]int
}

func NewSubscriber(cfg *config.Config, log *logger.Logger) *Subscriber {
	return &Subscriber{
		config:        cfg,
		logger:        log,
		revenueByDate: make(map[string]float64),
		ordersByDate:  make(map[string]int),
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	if s.config.RabbitMQ == nil {
		return fmt.Errorf("rabbitmq configuration is required for the stats subscriber")
	}

	rmq, err := rabbitmq.ConnectRabbitMQ(s.config.RabbitMQ, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	s.rabbitMQ = rmq
	defer rmq.Close()

	q, err := rmq.Channel.QueueDeclare(
		"",    // name (let server generate)
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = rmq.Channel.QueueBind(
		q.Name,                    // queue name
		"",                        // routing key
		rabbitmq.CloseoutExchange, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	messages, err := rmq.Channel.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.logger.Info("startup", "consuming_started", "Waiting for close-out events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			s.handleEvent(msg.Body)
		}
	}
}

func (s *Subscriber) handleEvent(body []byte) {
	var event models.CloseoutEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Error("", "event_parse_failed", "Failed to parse close-out event", err)
		return
	}

	s.revenueByDate[event.Date] += event.Revenue
	s.ordersByDate[event.Date] += event.ArchivedCount

	s.logger.Info("", "table_closed",
		fmt.Sprintf("Table %d closed: %d lines, %.2f revenue, %d covers; day %s total: %.2f over %d lines",
			event.Table, event.ArchivedCount, event.Revenue, event.PeopleCount,
			event.Date, s.revenueByDate[event.Date], s.ordersByDate[event.Date]))
}
