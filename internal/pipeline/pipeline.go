// Package pipeline wires capture to transform through a raw-object-created
// event, standing in for an external bucket-notification service. Delivery
// is at-least-once: a failed invocation is redelivered with backoff, and the
// transform's idempotent writes make the repeats safe.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
	"github.com/charmbracelet/log"

	"github.com/lwaltman/spotify-pulse/internal/capture"
	"github.com/lwaltman/spotify-pulse/internal/transform"
)

const (
	deliveryAttempts = 4
	deliveryDelay    = 500 * time.Millisecond
	deliveryMaxDelay = 10 * time.Second
)

// Service runs the capture-then-process flow for one snapshot.
type Service struct {
	capture *capture.Service
	handler *transform.Handler
	bucket  string
	log     *log.Logger
}

// New creates a pipeline service. bucket names the logical raw namespace in
// event payloads and error reports.
func New(capSvc *capture.Service, handler *transform.Handler, bucket string, logger *log.Logger) *Service {
	return &Service{
		capture: capSvc,
		handler: handler,
		bucket:  bucket,
		log:     logger,
	}
}

// Result holds the keys produced by one pipeline run.
type Result struct {
	RawKey       string
	ProcessedKey string
}

// Run captures a snapshot for the authenticated source and delivers the
// created-object event to the transform handler. Transient processing
// failures are redelivered with exponential backoff; malformed input is not,
// since it can never succeed.
func (s *Service) Run(ctx context.Context, src capture.Source) (*Result, error) {
	_, rawKey, err := s.capture.Capture(ctx, src)
	if err != nil {
		return nil, err
	}

	ev := transform.NewEvent(s.bucket, rawKey)

	var processedKey string
	err = retry.Do(
		func() error {
			key, err := s.handler.HandleRawObjectCreated(ctx, ev)
			if err != nil {
				return err
			}
			processedKey = key
			return nil
		},
		retry.Attempts(deliveryAttempts),
		retry.Delay(deliveryDelay),
		retry.MaxDelay(deliveryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var malformed *transform.MalformedInputError
			return !errors.As(err, &malformed)
		}),
		retry.OnRetry(func(attempt uint, err error) {
			s.log.Warn("redelivering raw-object event",
				"key", rawKey, "attempt", attempt+1, "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Result{RawKey: rawKey, ProcessedKey: processedKey}, nil
}
