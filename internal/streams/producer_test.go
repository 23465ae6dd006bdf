package streams

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdder struct {
	args *redis.XAddArgs
	id   string
	err  error
}

func (f *fakeAdder) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	return redis.NewStringResult(f.id, f.err)
}

func TestPublishMeetingProcessed(t *testing.T) {
	adder := &fakeAdder{id: "1700000000000-0"}
	p := &Publisher{rdb: adder}

	id, err := p.PublishMeetingProcessed(context.Background(), MeetingProcessed{
		MeetingID:  "m1",
		Username:   "alice",
		MemoryID:   "mem-1",
		EventCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", id)

	assert.Equal(t, StreamMeetingsProcessed, adder.args.Stream)
	assert.True(t, adder.args.Approx)
	assert.Equal(t, SchemaVersionV1, adder.args.Values.(map[string]interface{})["schema_version"])

	var evt MeetingProcessed
	payload := adder.args.Values.(map[string]interface{})["payload"].(string)
	require.NoError(t, json.Unmarshal([]byte(payload), &evt))
	assert.Equal(t, "m1", evt.MeetingID)
	assert.Equal(t, 2, evt.EventCount)
	assert.NotZero(t, evt.ProcessedAt)
}

func TestPublishMeetingProcessed_Error(t *testing.T) {
	p := &Publisher{rdb: &fakeAdder{err: errors.New("connection refused")}}

	_, err := p.PublishMeetingProcessed(context.Background(), MeetingProcessed{MeetingID: "m1"})
	assert.ErrorContains(t, err, "failed to publish to stream")
}

func TestNewPublisher_BadURL(t *testing.T) {
	_, err := NewPublisher("not a url")
	assert.Error(t, err)
}

func TestPublisher_CloseWithoutClient(t *testing.T) {
	assert.NoError(t, (&Publisher{}).Close())
}
