package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cockpit/market"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func instantRetry() Policy {
	p := DefaultPolicy()
	p.Sleep = func(time.Duration) {}
	return p
}

func TestClient_GenerateShortTermPrediction(t *testing.T) {
	t.Parallel()

	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody(`{"5min": {"direction": "BULLISH", "confidence": 75}, "reasoning": "strong bid"}`)))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "anthropic/claude-3.5-sonnet", nil, nil)

	pred, err := c.GenerateShortTermPrediction(context.Background(), "AAPL",
		market.Quote{Symbol: "AAPL", Last: 150, Bid: 149.99, Ask: 150.01, Volume: 1000},
		[]float64{149, 150, 151})
	require.NoError(t, err)

	assert.Equal(t, Bullish, pred.FiveMin.Direction)
	assert.InDelta(t, 75.0, pred.FiveMin.Confidence, 1e-9)
	assert.Equal(t, "strong bid", pred.Reasoning)

	assert.Equal(t, "anthropic/claude-3.5-sonnet", gotReq.Model)
	assert.Len(t, gotReq.Messages, 2)
	assert.Contains(t, gotReq.Messages[1].Content, "AAPL")
}

func TestClient_FallsBackAcrossModels(t *testing.T) {
	t.Parallel()

	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)

		if req.Model == "primary" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "primary", []string{"backup"}, nil)
	c.SetRetryPolicy(instantRetry())

	content, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, []string{"primary", "backup"}, models)
}

func TestClient_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m", nil, nil)
	c.SetRetryPolicy(instantRetry())

	content, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, 2, calls)
}

func TestClient_AllModelsFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "m1", []string{"m2"}, nil)
	c.SetRetryPolicy(instantRetry())

	_, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.2, 100)
	assert.Error(t, err)
}
