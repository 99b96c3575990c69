package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/skyvale/cloudpoints/pkg/models"
)

// SQSAPI captures the subset of the SQS client the recorder uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSRecorder implements Recorder using an AWS SQS queue.
type SQSRecorder struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSRecorder creates a new SQSRecorder.
func NewSQSRecorder(client SQSAPI, queueURL string) *SQSRecorder {
	return &SQSRecorder{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ Recorder = (*SQSRecorder)(nil)

// Record sends the ambiguous delivery to the reconciliation queue.
func (r *SQSRecorder) Record(ctx context.Context, delivery *models.AmbiguousDelivery) error {
	body, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("failed to marshal ambiguous delivery for SQS: %w", err)
	}

	_, err = r.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
