package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/events"
)

// S3Archiver accumulates routing events and writes them to S3 as JSON-lines
// objects, one object per flushed batch.
type S3Archiver struct {
	client    *s3.S3
	bucket    string
	batchSize int
	interval  time.Duration

	mutex       sync.Mutex
	pending     []events.RoutingEvent
	lastSuccess time.Time
	lastError   error

	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewS3Archiver creates an archiver and starts its flush loop.
func NewS3Archiver(region, bucket string) (*S3Archiver, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	a := &S3Archiver{
		client:       s3.New(sess),
		bucket:       bucket,
		batchSize:    500,
		interval:     30 * time.Second,
		shutdownChan: make(chan struct{}),
	}

	a.wg.Add(1)
	go a.flushLoop()

	return a, nil
}

// Add queues one event for archival; a full batch triggers an immediate flush.
func (a *S3Archiver) Add(event events.RoutingEvent) error {
	a.mutex.Lock()
	a.pending = append(a.pending, event)
	full := len(a.pending) >= a.batchSize
	a.mutex.Unlock()

	if full {
		return a.Flush()
	}
	return nil
}

func (a *S3Archiver) flushLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Flush(); err != nil {
				logrus.WithError(err).Warn("Periodic audit flush failed")
			}
		case <-a.shutdownChan:
			return
		}
	}
}

// Flush writes all pending events as one S3 object. On failure the batch is
// requeued so a transient S3 outage loses nothing.
func (a *S3Archiver) Flush() error {
	a.mutex.Lock()
	batch := a.pending
	a.pending = nil
	a.mutex.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, event := range batch {
		if err := encoder.Encode(event); err != nil {
			a.setError(err)
			return fmt.Errorf("failed to encode routing event: %w", err)
		}
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("audit/routing/%s/%s-%s.jsonl",
		now.Format("2006/01/02"), now.Format("150405"), uuid.New().String()[:8])

	_, err := a.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		a.mutex.Lock()
		a.pending = append(batch, a.pending...)
		a.mutex.Unlock()
		a.setError(err)
		return fmt.Errorf("failed to upload audit batch: %w", err)
	}

	a.mutex.Lock()
	a.lastSuccess = now
	a.lastError = nil
	a.mutex.Unlock()

	logrus.Infof("Archived %d routing events to s3://%s/%s", len(batch), a.bucket, key)
	return nil
}

func (a *S3Archiver) setError(err error) {
	a.mutex.Lock()
	a.lastError = err
	a.mutex.Unlock()
}

// GetStatus returns archiver state for the observability endpoint.
func (a *S3Archiver) GetStatus() map[string]interface{} {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	status := map[string]interface{}{
		"bucket":       a.bucket,
		"pending":      len(a.pending),
		"last_success": a.lastSuccess,
	}
	if a.lastError != nil {
		status["last_error"] = a.lastError.Error()
	}
	return status
}

// Close flushes the remainder and stops the loop.
func (a *S3Archiver) Close() error {
	close(a.shutdownChan)
	a.wg.Wait()
	return a.Flush()
}
