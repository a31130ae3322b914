package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherform/internal/model"
	rabbitmqClient "gopherform/internal/platform/rabbitmq"
)

type EventRecorder interface {
	Create(ctx context.Context, event *model.SubmissionEvent) error
}

// SubmissionEventWorker drains the submission event queue into the audit table.
type SubmissionEventWorker struct {
	conn      *amqp.Connection
	recorder  EventRecorder
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSubmissionEventWorker(conn *amqp.Connection, recorder EventRecorder, queueName string) *SubmissionEventWorker {
	return &SubmissionEventWorker{
		conn:      conn,
		recorder:  recorder,
		queueName: queueName,
	}
}

func (w *SubmissionEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmqClient.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					log.Printf("component=event_worker msg=%q err=%v", "drop delivery", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *SubmissionEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.SubmissionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode submission event failed: %w", err)
	}
	if event.SubmissionID == 0 {
		return fmt.Errorf("submission event without submission id")
	}
	switch event.Action {
	case model.SubmissionCreated, model.SubmissionDeleted:
	default:
		return fmt.Errorf("unknown submission event action %q", event.Action)
	}

	// The publisher's id has no meaning in the audit table.
	event.ID = 0
	return w.recorder.Create(ctx, &event)
}

func (w *SubmissionEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
