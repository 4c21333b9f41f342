package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"otomoto-watcher/internal/tracker"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:  kafka.TCP(brokers...),
		Topic: topic,
		// messages about one listing stay on one partition, in order
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: writer}
}

// Dispatch publishes one tracker event keyed by listing id.
func (p *Producer) Dispatch(ctx context.Context, e tracker.Event) error {
	event := ListingEvent{
		EventType: EventListing,
		Event:     e,
		FoundAt:   time.Now().UTC(),
	}

	if err := p.publish(ctx, e.Listing.ID, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Kind, err)
	}

	log.Printf("Published %s event: %s", e.Kind, e.Listing.ID)
	return nil
}

func (p *Producer) PublishRunSummary(ctx context.Context, event RunSummaryEvent) error {
	event.EventType = EventRunSummary

	if err := p.publish(ctx, "run_"+event.RunID, event); err != nil {
		return fmt.Errorf("failed to publish run_summary event: %w", err)
	}

	log.Printf("Published run_summary event: run_id=%s", event.RunID)
	return nil
}

func (p *Producer) PublishScrapeRequest(ctx context.Context) error {
	event := ScrapeRequestEvent{
		EventType: EventScrapeRequest,
		Timestamp: time.Now().UTC(),
	}

	if err := p.publish(ctx, "scrape_request", event); err != nil {
		return fmt.Errorf("failed to publish scrape_request event: %w", err)
	}

	log.Printf("Published scrape_request event")
	return nil
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
