package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"greenzone/internal/metrics"
	"greenzone/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
)

// ConsumerAPI defines the SQS operations used by StepConsumer.
type ConsumerAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// StepRecorder appends a producer-submitted step to a product's log.
type StepRecorder interface {
	RecordStep(ctx context.Context, input model.StepInput) (*model.SupplyChainStep, error)
}

// StepConsumerOptions tunes the receive loop.
type StepConsumerOptions struct {
	MaxMessages     int32
	WaitTimeSeconds int32
	RetryDelay      time.Duration
}

// Metric outcomes of a consumed step message.
const (
	stepOutcomeRejected  = "rejected"
	stepOutcomeRetryable = "retryable"
)

// StepConsumer long-polls the step queue and records every step it receives.
// Messages are deleted once recorded or permanently rejected; transient
// failures are left on the queue for redelivery.
type StepConsumer struct {
	client   ConsumerAPI
	queueURL string
	recorder StepRecorder
	opts     StepConsumerOptions
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewStepConsumer creates a consumer for queueURL.
func NewStepConsumer(client ConsumerAPI, queueURL string, recorder StepRecorder, opts StepConsumerOptions, m *metrics.Metrics, logger zerolog.Logger) *StepConsumer {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &StepConsumer{
		client:   client,
		queueURL: queueURL,
		recorder: recorder,
		opts:     opts,
		metrics:  m,
		logger:   logger.With().Str("component", "step-consumer").Logger(),
	}
}

// Start consumes messages until ctx is cancelled.
func (c *StepConsumer) Start(ctx context.Context) error {
	c.logger.Info().Str("queue_url", c.queueURL).Msg("starting step consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("stopping step consumer")
			return ctx.Err()
		default:
		}

		if err := c.receiveMessages(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error().Err(err).Msg("error receiving step messages")

			select {
			case <-ctx.Done():
			case <-time.After(c.opts.RetryDelay):
			}
		}
	}
}

func (c *StepConsumer) receiveMessages(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.opts.MaxMessages,
		WaitTimeSeconds:     c.opts.WaitTimeSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, message := range result.Messages {
		err := c.processMessage(ctx, message)
		switch {
		case err == nil:
			c.metrics.ObserveStep(metrics.OutcomeSuccess)
		case isPermanent(err):
			c.metrics.ObserveStep(stepOutcomeRejected)
			c.logger.Error().
				Err(err).
				Str("message_id", aws.ToString(message.MessageId)).
				Msg("discarding step message")
		default:
			c.metrics.ObserveStep(stepOutcomeRetryable)
			c.logger.Warn().
				Err(err).
				Str("message_id", aws.ToString(message.MessageId)).
				Msg("step message left for redelivery")
			continue
		}

		if err := c.deleteMessage(ctx, message); err != nil {
			c.logger.Error().Err(err).Msg("error deleting step message")
		}
	}

	return nil
}

func (c *StepConsumer) processMessage(ctx context.Context, message types.Message) error {
	if message.Body == nil {
		return permanent(fmt.Errorf("message body is nil"))
	}

	var input model.StepInput
	if err := json.Unmarshal([]byte(*message.Body), &input); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal message: %w", err))
	}

	// Redeliveries keep their message ID, which makes it a usable event ID.
	if input.EventID == "" {
		input.EventID = aws.ToString(message.MessageId)
	}

	step, err := c.recorder.RecordStep(ctx, input)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidArgument) {
			return permanent(err)
		}
		return err
	}

	c.logger.Info().
		Str("product_id", step.ProductID).
		Str("step_id", step.StepID).
		Str("action", string(step.Kind)).
		Msg("supply-chain step recorded")

	return nil
}

func (c *StepConsumer) deleteMessage(ctx context.Context, message types.Message) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
