package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	requests   atomic.Int32
	lastChat   map[string]interface{}
	lastEmbed  map[string]interface{}
	chatStatus int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/chat/completions":
		f.lastChat = body
		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 0, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "7"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 1, "total_tokens": 13}
		}`))
	case "/embeddings":
		f.lastEmbed = body
		// Deliberately out of order.
		_, _ = w.Write([]byte(`{
			"object": "list", "model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0, 1]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestService(t *testing.T, api *fakeAPI, cooldown time.Duration) *Service {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewService(Options{APIKey: "test", BaseURL: srv.URL + "/", Cooldown: cooldown}, nil)
}

func TestCompleteSendsRoles(t *testing.T) {
	api := &fakeAPI{}
	s := newTestService(t, api, 0)

	out, err := s.Complete(WithOperationType(context.Background(), "memory.importance"),
		[]Message{System("rate it"), User("Memory: x")})
	require.NoError(t, err)
	assert.Equal(t, "7", out)

	msgs, ok := api.lastChat["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", msgs[1].(map[string]interface{})["role"])
	assert.Equal(t, DefaultChatModel, api.lastChat["model"])
}

func TestCompleteError(t *testing.T) {
	api := &fakeAPI{chatStatus: http.StatusBadRequest}
	s := newTestService(t, api, 0)

	_, err := s.Complete(context.Background(), []Message{User("hi")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestEmbedRestoresInputOrder(t *testing.T) {
	api := &fakeAPI{}
	s := newTestService(t, api, 0)

	vecs, err := s.Embed(context.Background(), []string{"first", "second"}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.EqualValues(t, 2, api.lastEmbed["dimensions"])

	empty, err := s.Embed(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestServiceCooldownIsShared(t *testing.T) {
	api := &fakeAPI{}
	s := newTestService(t, api, time.Hour)

	_, err := s.Complete(context.Background(), []Message{User("hi")})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), []string{"a", "b"}, 2)
	assert.ErrorIs(t, err, ErrRateLimited)
	_, err = s.Complete(context.Background(), []Message{User("again")})
	assert.ErrorIs(t, err, ErrRateLimited)

	assert.EqualValues(t, 1, api.requests.Load())
}
