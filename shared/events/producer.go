package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Producer publishes routing events to Kafka through a buffered worker pool.
// Publishing never blocks the request path: when the buffer is full the event
// is dropped and counted, which is acceptable for an audit stream.
type Producer struct {
	writer       *kafka.Writer
	topic        string
	eventChan    chan RoutingEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup

	mutex   sync.Mutex
	dropped int64
}

// NewProducer creates a producer and starts its worker pool.
func NewProducer(broker, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	p := &Producer{
		writer:       writer,
		topic:        topic,
		eventChan:    make(chan RoutingEvent, 1000),
		workerCount:  4,
		shutdownChan: make(chan struct{}),
	}

	p.startWorkers()
	return p
}

func (p *Producer) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logrus.Infof("Started %d routing-event workers", p.workerCount)
}

func (p *Producer) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.eventChan:
			if err := p.sendSync(event); err != nil {
				logrus.WithError(err).Warnf("Routing-event worker %d failed to publish", id)
			}
		case <-p.shutdownChan:
			return
		}
	}
}

// Publish queues a routing event asynchronously (non-blocking).
func (p *Producer) Publish(event RoutingEvent) error {
	select {
	case p.eventChan <- event:
		return nil
	default:
		p.mutex.Lock()
		p.dropped++
		p.mutex.Unlock()
		return fmt.Errorf("routing event queue full, event dropped")
	}
}

func (p *Producer) sendSync(event RoutingEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal routing event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.TenantID),
		Value: message,
		Headers: []kafka.Header{
			{Key: "decision", Value: []byte(event.Decision)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write routing event to Kafka: %w", err)
	}

	return nil
}

// Dropped returns how many events were shed because the buffer was full.
func (p *Producer) Dropped() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.dropped
}

// Close drains the workers and closes the Kafka writer.
func (p *Producer) Close() error {
	close(p.shutdownChan)
	p.wg.Wait()
	return p.writer.Close()
}
