package turnlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	puts []*dynamodb.PutItemInput
	err  error
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func stringAttr(t *testing.T, item map[string]types.AttributeValue, key string) string {
	t.Helper()
	v, ok := item[key].(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %s is not a string", key)
	return v.Value
}

func numberAttr(t *testing.T, item map[string]types.AttributeValue, key string) string {
	t.Helper()
	v, ok := item[key].(*types.AttributeValueMemberN)
	require.True(t, ok, "attribute %s is not a number", key)
	return v.Value
}

func TestNewDynamoRecorder_Validation(t *testing.T) {
	_, err := newDynamoRecorder(nil, "turns")
	assert.Error(t, err)

	_, err = newDynamoRecorder(&fakeDynamo{}, "  ")
	assert.Error(t, err)
}

func TestDynamoRecorder_Record(t *testing.T) {
	api := &fakeDynamo{}
	r, err := newDynamoRecorder(api, "duet-turns")
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, r.Record(context.Background(), Entry{
		JobID:     "job-1",
		Seq:       7,
		At:        at,
		Kind:      KindHandoff,
		Role:      "A",
		Persona:   "martha",
		Topic:     "dessert",
		TurnCount: 1,
	}))

	require.Len(t, api.puts, 1)
	in := api.puts[0]
	assert.Equal(t, "duet-turns", *in.TableName)
	assert.Contains(t, *in.ConditionExpression, "attribute_not_exists")

	item := in.Item
	assert.Equal(t, "JOB#job-1", stringAttr(t, item, "PK"))
	assert.Equal(t, "TURN#000007", stringAttr(t, item, "SK"))
	assert.Equal(t, "handoff", stringAttr(t, item, "kind"))
	assert.Equal(t, "dessert", stringAttr(t, item, "topic"))
	assert.Equal(t, "1", numberAttr(t, item, "turn_count"))
	assert.Equal(t, "1774951200", numberAttr(t, item, "ttl"))
	assert.NotContains(t, item, "text")
}

func TestDynamoRecorder_DefaultsTimestamp(t *testing.T) {
	api := &fakeDynamo{}
	r, err := newDynamoRecorder(api, "t")
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	require.NoError(t, r.Record(context.Background(), Entry{JobID: "j", Kind: KindReply, Text: "hi"}))
	assert.Equal(t, fixed.Format(time.RFC3339Nano), stringAttr(t, api.puts[0].Item, "at"))
	assert.Equal(t, "hi", stringAttr(t, api.puts[0].Item, "text"))
}

func TestDynamoRecorder_Error(t *testing.T) {
	boom := errors.New("throttled")
	r, err := newDynamoRecorder(&fakeDynamo{err: boom}, "t")
	require.NoError(t, err)

	err = r.Record(context.Background(), Entry{JobID: "j", Seq: 2})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "JOB#j/TURN#000002")
}

func TestNopAndLogRecorder(t *testing.T) {
	assert.NoError(t, Nop{}.Record(context.Background(), Entry{}))
	assert.NoError(t, LogRecorder{}.Record(context.Background(), Entry{JobID: "j", Kind: KindReply}))
}
