// Package kafka publishes checkout lifecycle events (order.created,
// payment.captured) to the events topic. Publishing is asynchronous and
// best-effort: a broker problem is logged and never fails the HTTP request
// that triggered the event.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/jejumarket/checkout-service/internal/config"
	"github.com/jejumarket/checkout-service/internal/models"
	"github.com/jejumarket/checkout-service/lib/logger/sl"
)

type Producer struct {
	Producer sarama.AsyncProducer
	topic    string
	Log      *slog.Logger
}

func NewProducer(cfg config.Kafka, log *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()

	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Producer.Acks)
	config.Producer.Idempotent = cfg.Producer.EnableIdempotence
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = cfg.Producer.Retries

	p, err := sarama.NewAsyncProducer(cfg.BootstrapServers, config)
	if err != nil {
		return nil, fmt.Errorf("can't create producer: %v", err)
	}

	return &Producer{
		Producer: p,
		topic:    cfg.Topic,
		Log:      log,
	}, nil
}

// PublishOrderCreated emits an order.created event keyed by the order id.
func (p *Producer) PublishOrderCreated(order *models.Order) {
	p.publish(models.Event{
		EventID:   uuid.NewString(),
		OrderID:   order.OrderID,
		Type:      models.EventOrderCreated,
		CreatedAt: time.Now().UTC(),
		Payload: map[string]any{
			"total_amount": order.TotalAmount,
			"order_name":   order.OrderName,
			"items":        len(order.Items),
		},
	})
}

// PublishPaymentCaptured emits a payment.captured event keyed by the order id.
func (p *Producer) PublishPaymentCaptured(order *models.Order, paymentKey string) {
	p.publish(models.Event{
		EventID:   uuid.NewString(),
		OrderID:   order.OrderID,
		Type:      models.EventPaymentCaptured,
		CreatedAt: time.Now().UTC(),
		Payload: map[string]any{
			"total_amount": order.TotalAmount,
			"payment_key":  paymentKey,
		},
	})
}

func (p *Producer) publish(event models.Event) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		p.Log.Error("can't marshal event", sl.Err(err))

		return
	}

	p.Producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(eventJSON),
	}
}

// HandleResult drains the producer's success and error channels until the
// context is canceled. Must run for the lifetime of the producer, otherwise
// the async producer blocks.
func (p *Producer) HandleResult(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	go func() {
		for success := range p.Producer.Successes() {
			p.Log.Info("event sent successfully",
				slog.Int("partition", int(success.Partition)),
				slog.Int64("offset", success.Offset),
			)
		}
	}()

	go func() {
		for err := range p.Producer.Errors() {
			p.Log.Error("failed to send event", sl.Err(err))
		}
	}()

	<-ctx.Done()
}
