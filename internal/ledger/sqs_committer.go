package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"greenzone/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
)

// SenderAPI defines the SQS operations used by SQSCommitter.
type SenderAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSCommitter sends operations to the ledger gateway queue.
//
// On FIFO queues operations on one product share a message group, so the
// gateway applies them in commit order, and the operation ID deduplicates
// retried sends.
type SQSCommitter struct {
	client   SenderAPI
	queueURL string
	fifo     bool
	logger   zerolog.Logger
}

// NewSQSCommitter creates a committer publishing to queueURL.
func NewSQSCommitter(client SenderAPI, queueURL string, logger zerolog.Logger) *SQSCommitter {
	return &SQSCommitter{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
		logger:   logger.With().Str("committer", "sqs").Logger(),
	}
}

// Commit publishes op. Every failure is reported as a CommitFailed error.
func (c *SQSCommitter) Commit(ctx context.Context, op model.Operation) error {
	body, err := json.Marshal(op)
	if err != nil {
		return model.CommitFailed(op.ProductID, fmt.Errorf("failed to marshal operation: %w", err))
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"operation": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(op.Name)),
			},
		},
	}
	if c.fifo {
		input.MessageGroupId = aws.String(op.ProductID)
		input.MessageDeduplicationId = aws.String(op.ID.String())
	}

	out, err := c.client.SendMessage(ctx, input)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("operation_id", op.ID.String()).
			Str("operation", string(op.Name)).
			Str("product_id", op.ProductID).
			Msg("failed to send operation to ledger queue")
		return model.CommitFailed(op.ProductID, fmt.Errorf("failed to send message to SQS: %w", err))
	}

	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}

	c.logger.Debug().
		Str("operation_id", op.ID.String()).
		Str("operation", string(op.Name)).
		Str("product_id", op.ProductID).
		Str("message_id", messageID).
		Msg("operation committed")

	return nil
}
