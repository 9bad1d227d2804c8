package consolidate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/recall-go/pkg/memclient"
	"github.com/theapemachine/recall-go/pkg/project"
)

type storeRecorder struct {
	stored    []memclient.StoreRequest
	evaluated []string
}

func (s *storeRecorder) Connect(context.Context) error { return nil }
func (s *storeRecorder) Disconnect() error             { return nil }
func (s *storeRecorder) Name() string                  { return "recorder" }

func (s *storeRecorder) Health(context.Context) (*memclient.Health, error) {
	return &memclient.Health{}, nil
}

func (s *storeRecorder) Search(context.Context, string, int) ([]memclient.Memory, error) {
	return nil, nil
}

func (s *storeRecorder) SearchByTime(context.Context, string, string, int) ([]memclient.Memory, error) {
	return nil, nil
}

func (s *storeRecorder) SearchByTag(context.Context, []string, int) ([]memclient.Memory, error) {
	return nil, nil
}

func (s *storeRecorder) SearchByTagAndTime(context.Context, []string, string, int) ([]memclient.Memory, error) {
	return nil, nil
}

func (s *storeRecorder) Store(_ context.Context, req memclient.StoreRequest) (string, error) {
	s.stored = append(s.stored, req)
	return "stored-hash", nil
}

func (s *storeRecorder) EvaluateQuality(hash string) {
	s.evaluated = append(s.evaluated, hash)
}

const sampleTranscript = `
We worked on the retrieval pipeline today. After comparing the options we
decided to use a phased approach with deduplication between phases.
I implemented the orchestrator and fixed the timestamp normalization bug.
Turns out the server sends epoch seconds while the client expected
milliseconds. Need to add more coverage for the cluster phase next.
The query performance looks fine after adding the cache.
`

func testSession(transcript string) Session {
	return Session{
		SessionID:  "session-1",
		Transcript: transcript,
		Project:    &project.Context{Name: "recall", Language: "go"},
	}
}

func TestExtractFindsCategories(t *testing.T) {
	summary := Extract(sampleTranscript)

	require.NotEmpty(t, summary.Decisions)
	assert.Contains(t, summary.Decisions[0], "phased approach")

	require.NotEmpty(t, summary.Insights)
	assert.Contains(t, summary.Insights[0], "epoch seconds")

	require.NotEmpty(t, summary.CodeChanges)
	require.NotEmpty(t, summary.NextSteps)
	assert.NotEmpty(t, summary.Topics)

	assert.Greater(t, summary.Confidence, 0.0)
	assert.LessOrEqual(t, summary.Confidence, 1.0)
}

func TestExtractDeduplicatesAndTruncates(t *testing.T) {
	repeated := strings.Repeat("We decided to use sqlite here. ", 10)
	summary := Extract(repeated)

	assert.Len(t, summary.Decisions, 1)

	long := "decided to " + strings.Repeat("keep going and going ", 20)
	summary = Extract(long)
	require.NotEmpty(t, summary.Decisions)
	assert.LessOrEqual(t, len(summary.Decisions[0]), maxItemChars)
}

func TestConsolidateStoresWithSessionTags(t *testing.T) {
	recorder := &storeRecorder{}
	consolidator := New(recorder)

	hash, err := consolidator.Consolidate(context.Background(), testSession(sampleTranscript))
	require.NoError(t, err)
	assert.Equal(t, "stored-hash", hash)

	require.Len(t, recorder.stored, 1)
	req := recorder.stored[0]

	assert.Contains(t, req.Tags, "project-assistant-session")
	assert.Contains(t, req.Tags, "session-consolidation")
	assert.Contains(t, req.Tags, "recall")
	assert.Contains(t, req.Tags, "language:go")

	hasConfidenceTag := false
	for _, tag := range req.Tags {
		if strings.HasPrefix(tag, "confidence:") && strings.HasSuffix(tag, "%") {
			hasConfidenceTag = true
		}
	}
	assert.True(t, hasConfidenceTag)

	assert.Contains(t, req.Content, "# Session summary: recall")
	assert.Contains(t, req.Content, "## Decisions")

	assert.Equal(t, []string{"stored-hash"}, recorder.evaluated)
}

func TestConsolidateShortSessionNotStored(t *testing.T) {
	recorder := &storeRecorder{}
	consolidator := New(recorder)

	hash, err := consolidator.Consolidate(context.Background(), testSession("quick question"))
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Empty(t, recorder.stored)
}

func TestRememberOverrideBypassesGates(t *testing.T) {
	recorder := &storeRecorder{}
	consolidator := New(recorder)

	session := testSession("short but important exchange")
	session.LastUserMessage = "#remember this decision"

	hash, err := consolidator.Consolidate(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "stored-hash", hash)
	require.Len(t, recorder.stored, 1)
	assert.Contains(t, recorder.stored[0].Tags, "confidence:100%")
}

func TestSkipOverrideSuppressesStorage(t *testing.T) {
	recorder := &storeRecorder{}
	consolidator := New(recorder)

	session := testSession(sampleTranscript)
	session.LastUserMessage = "thanks, #skip this one"

	hash, err := consolidator.Consolidate(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Empty(t, recorder.stored)
}
