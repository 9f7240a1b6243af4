package turnlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultTTL is how long entries are kept in the table.
const DefaultTTL = 30 * 24 * time.Hour

// dynamodbAPI is the minimal DynamoDB interface DynamoRecorder needs.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoRecorder stores entries in a DynamoDB table keyed by job.
type DynamoRecorder struct {
	api   dynamodbAPI
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewDynamoRecorder creates a recorder for table using the default AWS
// credential chain.
func NewDynamoRecorder(ctx context.Context, table, region string) (*DynamoRecorder, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newDynamoRecorder(dynamodb.NewFromConfig(cfg), table)
}

func newDynamoRecorder(api dynamodbAPI, table string) (*DynamoRecorder, error) {
	if api == nil {
		return nil, errors.New("turnlog: api must not be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("turnlog: table name must not be empty")
	}
	return &DynamoRecorder{api: api, table: table, ttl: DefaultTTL, now: time.Now}, nil
}

func jobPK(jobID string) string {
	return "JOB#" + jobID
}

func turnSK(seq int) string {
	return fmt.Sprintf("TURN#%06d", seq)
}

// Record writes e. An entry with the same job and sequence is never
// overwritten.
func (r *DynamoRecorder) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = r.now()
	}

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: jobPK(e.JobID)},
		"SK":         &types.AttributeValueMemberS{Value: turnSK(e.Seq)},
		"kind":       &types.AttributeValueMemberS{Value: string(e.Kind)},
		"role":       &types.AttributeValueMemberS{Value: e.Role},
		"persona":    &types.AttributeValueMemberS{Value: e.Persona},
		"turn_count": &types.AttributeValueMemberN{Value: strconv.Itoa(e.TurnCount)},
		"at":         &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		"ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(at.Add(r.ttl).Unix(), 10)},
	}
	if e.Text != "" {
		item["text"] = &types.AttributeValueMemberS{Value: e.Text}
	}
	if e.Utterance != "" {
		item["utterance"] = &types.AttributeValueMemberS{Value: e.Utterance}
	}
	if e.Topic != "" {
		item["topic"] = &types.AttributeValueMemberS{Value: e.Topic}
	}

	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("turnlog: put %s/%s: %w", jobPK(e.JobID), turnSK(e.Seq), err)
	}
	return nil
}
