package archive

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket string
	key    string
	body   string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	at := time.Date(2026, time.March, 5, 23, 0, 0, 0, time.UTC)

	key := Key("alice", "Recording.WEBM", at)
	assert.Regexp(t, regexp.MustCompile(`^audio/alice/2026/03/[0-9a-f-]{36}\.webm$`), key)

	assert.NotEqual(t, key, Key("alice", "Recording.WEBM", at), "keys must be unique")
}

func TestKey_NoExtension(t *testing.T) {
	key := Key("bob", "", time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^audio/bob/2026/12/[0-9a-f-]{36}$`), key)
}

func TestPutAudio(t *testing.T) {
	client := &fakeS3{}
	store := NewWithClient(client, "meetings")

	key, err := store.PutAudio(context.Background(), "alice", "clip.wav", strings.NewReader("pcm"))
	require.NoError(t, err)

	assert.Equal(t, "meetings", client.bucket)
	assert.Equal(t, key, client.key)
	assert.Equal(t, "pcm", client.body)
	assert.True(t, strings.HasSuffix(key, ".wav"))
}

func TestPutAudio_Error(t *testing.T) {
	store := NewWithClient(&fakeS3{err: errors.New("access denied")}, "meetings")

	_, err := store.PutAudio(context.Background(), "alice", "clip.wav", strings.NewReader("pcm"))
	assert.ErrorContains(t, err, "failed to archive audio")
}
