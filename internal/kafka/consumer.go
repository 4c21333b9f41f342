package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
	})

	return &Consumer{reader: reader}
}

type EventHandler interface {
	HandleListingEvent(event ListingEvent) error
	HandleRunSummary(event RunSummaryEvent) error
	HandleScrapeRequest(event ScrapeRequestEvent) error
}

func (c *Consumer) ProcessEvents(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Consumer stopping...")
				return ctx.Err()
			}
			log.Printf("Error reading message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if err := handleMessage(message, handler); err != nil {
			log.Printf("Error handling message: %v", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func handleMessage(message kafka.Message, handler EventHandler) error {
	log.Printf("Received message: key=%s, partition=%d, offset=%d",
		string(message.Key), message.Partition, message.Offset)

	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return err
	}

	switch envelope.EventType {
	case EventListing:
		var event ListingEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		return handler.HandleListingEvent(event)

	case EventRunSummary:
		var event RunSummaryEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		return handler.HandleRunSummary(event)

	case EventScrapeRequest:
		var event ScrapeRequestEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		return handler.HandleScrapeRequest(event)

	default:
		log.Printf("Unknown event type: %q", envelope.EventType)
		return nil
	}
}
