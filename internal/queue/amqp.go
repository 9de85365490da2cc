package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// SyncJob is the wire payload for queued CRM sync jobs.
type SyncJob struct {
	CampaignID int `json:"campaign_id"`
}

// AmqpQueue publishes jobs to RabbitMQ. Consumption happens out of process in
// cmd/worker, so Subscribe is not supported on this implementation.
type AmqpQueue struct {
	conn *amqp.Connection
}

func DialAmqp(url string) (*AmqpQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return &AmqpQueue{conn: conn}, nil
}

func (q *AmqpQueue) Close() error {
	return q.conn.Close()
}

// Publish declares the durable queue and publishes the payload as JSON. The
// payload must be an int campaign id.
func (q *AmqpQueue) Publish(topic string, payload any) error {
	campaignID, ok := payload.(int)
	if !ok {
		return fmt.Errorf("unsupported payload type %T", payload)
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open queue channel: %w", err)
	}
	defer ch.Close()

	queue, err := ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, _ := json.Marshal(SyncJob{CampaignID: campaignID})
	return ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (q *AmqpQueue) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("amqp subscribers run out of process via cmd/worker")
}

var _ Queue = (*AmqpQueue)(nil)
