package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pbaille/jot/internal/classify"
	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/journal"
	"github.com/pbaille/jot/internal/llm"
	"github.com/pbaille/jot/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *journal.Store) {
	t.Helper()
	logger := zap.NewNop()
	collab := llm.Unavailable("test")
	store := journal.New(nil, logger)
	clf := classify.New(collab, logger)
	r := router.New(store, clf, collab, logger,
		router.WithClock(func() time.Time {
			return time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
		}))
	return New(r, nil, ":0", logger), store
}

func postMessage(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/messages", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleMessageLogsEntry(t *testing.T) {
	srv, store := newTestServer(t)

	w := postMessage(t, srv.Handler(), `{"text": "補記 昨天14:30 澆花", "user": "u1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Reply, "已補記")
	assert.Equal(t, 1, store.Len())
}

func TestHandleMessageMalformedEvent(t *testing.T) {
	srv, store := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing text", `{"user": "u1"}`},
		{"blank text", `{"text": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postMessage(t, srv.Handler(), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	assert.Zero(t, store.Len(), "malformed events are skipped, not processed")
}

func TestHandleMessageProcessingContinuesAfterBadEvent(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	postMessage(t, h, "not json")
	w := postMessage(t, h, `{"text": "補記 昨天澆花"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.Len())
}

// ctxProbeCollab succeeds only while the request context is alive, so the
// tests can observe whether handlers pass it through.
type ctxProbeCollab struct {
	llm.Collaborator
}

func (c ctxProbeCollab) Chat(ctx context.Context, persona string, turns []domain.Turn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "還在喔", nil
}

func TestHandleMessageUsesRequestContext(t *testing.T) {
	logger := zap.NewNop()
	collab := ctxProbeCollab{Collaborator: llm.Unavailable("test")}
	store := journal.New(nil, logger)
	r := router.New(store, classify.New(collab, logger), collab, logger)
	srv := New(r, nil, ":0", logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("POST", "/messages",
		bytes.NewReader([]byte(`{"text": "最近好嗎"}`))).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "有點忙",
		"a dead request context degrades the collaborator call to the busy reply")

	// A live context reaches the collaborator normally.
	w = postMessage(t, srv.Handler(), `{"text": "最近好嗎"}`)
	assert.Contains(t, w.Body.String(), "還在喔")
}

func TestEntriesWithoutMirror(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/entries", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
