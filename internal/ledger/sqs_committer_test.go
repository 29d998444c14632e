package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"greenzone/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSQSSender is a mock implementation of the SQS client for committer testing.
type mockSQSSender struct {
	sendMessageFunc func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func (m *mockSQSSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, params, optFns...)
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSCommitter_Commit(t *testing.T) {
	t.Run("standard queue", func(t *testing.T) {
		// given
		queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/ledger"
		op := testOperation()

		var sent *sqs.SendMessageInput
		client := &mockSQSSender{
			sendMessageFunc: func(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				sent = params
				return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
			},
		}
		committer := NewSQSCommitter(client, queueURL, zerolog.Nop())

		// when
		err := committer.Commit(context.Background(), op)

		// then
		require.NoError(t, err)
		require.NotNil(t, sent)
		assert.Equal(t, queueURL, aws.ToString(sent.QueueUrl))
		assert.Nil(t, sent.MessageGroupId)
		assert.Nil(t, sent.MessageDeduplicationId)
		assert.Equal(t, "Register", aws.ToString(sent.MessageAttributes["operation"].StringValue))

		var decoded model.Operation
		require.NoError(t, json.Unmarshal([]byte(aws.ToString(sent.MessageBody)), &decoded))
		assert.Equal(t, op.ID, decoded.ID)
		assert.Equal(t, "GZ-001", decoded.ProductID)
		assert.Equal(t, int64(50000), decoded.Record.Price)
	})

	t.Run("fifo queue groups by product", func(t *testing.T) {
		// given
		op := testOperation()

		var sent *sqs.SendMessageInput
		client := &mockSQSSender{
			sendMessageFunc: func(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				sent = params
				return &sqs.SendMessageOutput{}, nil
			},
		}
		committer := NewSQSCommitter(client, "https://sqs.us-east-1.amazonaws.com/123456789/ledger.fifo", zerolog.Nop())

		// when
		err := committer.Commit(context.Background(), op)

		// then
		require.NoError(t, err)
		assert.Equal(t, "GZ-001", aws.ToString(sent.MessageGroupId))
		assert.Equal(t, op.ID.String(), aws.ToString(sent.MessageDeduplicationId))
	})

	t.Run("send failure is a commit failure", func(t *testing.T) {
		// given
		cause := errors.New("connection refused")
		client := &mockSQSSender{
			sendMessageFunc: func(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				return nil, cause
			},
		}
		committer := NewSQSCommitter(client, "ledger", zerolog.Nop())

		// when
		err := committer.Commit(context.Background(), testOperation())

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrCommitFailed)
		assert.ErrorIs(t, err, cause)

		var de *model.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "GZ-001", de.ProductID)
	})
}
