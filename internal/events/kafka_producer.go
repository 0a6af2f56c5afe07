package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/carpool/internal/models"
)

const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeRidePublished    = "ride.published"
)

// Envelope is the JSON value of every message on the events topic.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Booking    *models.Booking `json:"booking,omitempty"`
	Ride       *models.Ride    `json:"ride,omitempty"`
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{Addr: kafka.TCP(brokers...), Topic: topic, Balancer: &kafka.LeastBytes{}}
	return &KafkaProducer{writer: w}
}

func (k *KafkaProducer) PublishBooking(ctx context.Context, b models.Booking) error {
	return k.publish(ctx, b.RideRef, Envelope{Type: TypeBookingConfirmed, OccurredAt: time.Now().UTC(), Booking: &b})
}

func (k *KafkaProducer) PublishRide(ctx context.Context, r models.Ride) error {
	return k.publish(ctx, r.ID, Envelope{Type: TypeRidePublished, OccurredAt: time.Now().UTC(), Ride: &r})
}

func (k *KafkaProducer) publish(ctx context.Context, key string, e Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishBooking(context.Context, models.Booking) error { return nil }
func (Nop) PublishRide(context.Context, models.Ride) error       { return nil }
