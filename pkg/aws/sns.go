package aws

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// PaymentMessage is one checkout webhook event bound for the payment topic.
// Body is the JSON-encoded models.PaymentEvent.
type PaymentMessage struct {
	EventType string
	EventID   string
	SessionID string
	Body      []byte
}

// SNSPublisher fans checkout events (completed, async succeeded or failed,
// expired) out to downstream consumers such as fulfilment and receipts.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, msg PaymentMessage) error
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client snsAPI
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish sends msg with an event_type attribute so subscriptions can filter
// on it. On FIFO topics events are grouped by checkout session and
// deduplicated by Stripe event ID, since Stripe redelivers on timeouts.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, msg PaymentMessage) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(msg.Body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(msg.EventType)},
		},
	}
	if strings.HasSuffix(topicArn, ".fifo") {
		input.MessageGroupId = sdkaws.String(msg.SessionID)
		input.MessageDeduplicationId = sdkaws.String(msg.EventID)
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish %s for session %s to %s: %w", msg.EventType, msg.SessionID, topicArn, err)
	}
	return nil
}
