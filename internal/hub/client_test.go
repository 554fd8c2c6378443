package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opoerator/drophub/internal/errors"
	"github.com/opoerator/drophub/internal/identity"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestClient starts an httptest server running handler and returns a
// client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithLogger(quietLogger)}, opts...)
	c, ok := New(srv.URL, "test-key", opts...)
	require.True(t, ok)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var phone = identity.Identity{Kind: identity.Phone, Value: "+15551234567"}

func TestNew_RequiresURLAndKey(t *testing.T) {
	_, ok := New("", "key")
	assert.False(t, ok)

	_, ok = New("https://hub", "  ")
	assert.False(t, ok)

	c, ok := New("https://hub/", "key")
	require.True(t, ok)
	assert.Equal(t, "https://hub", c.BaseURL())
}

func TestFetchByFallbackID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/hydrate/user-1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "20", r.URL.Query().Get("drops_limit"))
		assert.Equal(t, "5", r.URL.Query().Get("sessions_limit"))
		assert.Equal(t, "3", r.URL.Query().Get("digests_limit"))
		writeJSON(w, 200, map[string]any{
			"status":   "ok",
			"user_id":  "user-1",
			"drops":    []map[string]any{{"id": "d1", "source": "sms", "content": "hi", "timestamp": "2026-02-06T10:00:00Z"}},
			"sessions": []map[string]any{{"id": "s1", "name": "Planning"}},
			"digests":  []map[string]any{{"date": "2026-02-05", "summary": "quiet day"}},
		})
	}, WithUserID("user-1"))

	resp := c.FetchByFallbackID(context.Background(), Limits{Drops: 20, Sessions: 5, Digests: 3})

	require.NotNil(t, resp)
	assert.Equal(t, "user-1", resp.UserID)
	require.Len(t, resp.Drops, 1)
	assert.Equal(t, "hi", resp.Drops[0].Content)
	assert.Equal(t, "Planning", resp.Sessions[0].Name)
	assert.Equal(t, "quiet day", resp.Digests[0].Summary)
}

func TestFetchByFallbackID_NoUserIDSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	assert.Nil(t, c.FetchByFallbackID(context.Background(), Limits{}))
	assert.Zero(t, calls.Load())
}

func TestFetchByIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hydrate/by-identity", r.URL.Path)
		assert.Equal(t, "phone", r.URL.Query().Get("identity_type"))
		assert.Equal(t, "+15551234567", r.URL.Query().Get("identity_value"))
		writeJSON(w, 200, map[string]any{"status": "ok", "user_id": "u9", "matched": true})
	})

	resp := c.FetchByIdentity(context.Background(), phone, Limits{Drops: 1})

	require.NotNil(t, resp)
	assert.True(t, resp.Matched)
	assert.Equal(t, "u9", resp.UserID)
	assert.Empty(t, resp.Drops)
}

func TestContextOperations_DegradeOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, WithUserID("u1"))
			ctx := context.Background()

			assert.Nil(t, c.FetchByFallbackID(ctx, Limits{}))
			assert.Nil(t, c.FetchByIdentity(ctx, phone, Limits{}))
			assert.Nil(t, c.VerifyCode(ctx, VerifyRequest{Code: "ABC123"}))
			assert.Nil(t, c.IngestDrop(ctx, IngestRequest{Content: "x"}))
			assert.True(t, c.IsFirstTimeSender(ctx, phone))
		})
	}
}

func TestContextOperations_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, ok := New(url, "k", WithLogger(quietLogger), WithUserID("u1"), WithTimeout(time.Second))
	require.True(t, ok)

	assert.Nil(t, c.FetchByFallbackID(context.Background(), Limits{}))
	assert.True(t, c.IsFirstTimeSender(context.Background(), phone))
}

func TestVerifyCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/channels/verify-code", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Code == "ABC123" && req.Phone == "+15551234567" && req.Channel == "sms" {
			writeJSON(w, 200, map[string]any{"status": "ok", "user_id": "u1"})
			return
		}
		writeJSON(w, 400, map[string]any{"status": "error", "message": "Code expired"})
	})
	ctx := context.Background()

	ok := c.VerifyCode(ctx, VerifyRequest{Code: "ABC123", Phone: "+15551234567", Channel: "sms"})
	require.NotNil(t, ok)
	assert.True(t, ok.OK())
	assert.Equal(t, "u1", ok.UserID)

	rejected := c.VerifyCode(ctx, VerifyRequest{Code: "ZZZ999", Phone: "+15551234567", Channel: "sms"})
	require.NotNil(t, rejected)
	assert.False(t, rejected.OK())
	assert.Equal(t, "Code expired", rejected.Message)
}

func TestIngestDrop(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ingest", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sms", body["source"])
		assert.Equal(t, "hello", body["content"])
		assert.Equal(t, "phone", body["identity_type"])
		assert.Equal(t, "+15551234567", body["identity_value"])
		assert.Equal(t, map[string]any{"channel": "sms"}, body["metadata"])
		writeJSON(w, 200, map[string]any{"status": "ok", "vault_id": "v1"})
	})

	res := c.IngestDrop(context.Background(), IngestRequest{
		Source:        "sms",
		Content:       "hello",
		IdentityType:  "phone",
		IdentityValue: "+15551234567",
		Metadata:      map[string]any{"channel": "sms"},
	})

	require.NotNil(t, res)
	assert.True(t, res.OK())
	assert.Equal(t, "v1", res.VaultID)
}

func TestIsFirstTimeSender(t *testing.T) {
	tests := []struct {
		name string
		resp map[string]any
		want bool
	}{
		{"matched with account", map[string]any{"status": "ok", "matched": true, "user_id": "u1"}, false},
		{"unmatched", map[string]any{"status": "ok", "matched": false}, true},
		{"matched without account id", map[string]any{"status": "ok", "matched": true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "0", r.URL.Query().Get("drops_limit"))
				writeJSON(w, 200, tt.resp)
			})
			assert.Equal(t, tt.want, c.IsFirstTimeSender(context.Background(), phone))
		})
	}
}

func TestAgentDrops(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/agent-drops":
			var body NewDrop
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "claude-code", body.FromAgent)
			assert.Equal(t, []string{}, body.Tags)
			writeJSON(w, 201, map[string]any{"drop": map[string]any{"id": "d1", "from": body.FromAgent, "type": body.DropType}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/agent-drops":
			assert.Equal(t, "openclaw", r.URL.Query().Get("from_agent"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.False(t, r.URL.Query().Has("drop_type"))
			writeJSON(w, 200, map[string]any{"drops": []map[string]any{{"id": "d1"}, {"id": "d2"}}})
		case r.URL.Path == "/api/agent-drops/d1":
			writeJSON(w, 200, map[string]any{"drop": map[string]any{"id": "d1", "content": "body"}})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	created, err := c.CreateDrop(ctx, NewDrop{FromAgent: "claude-code", Title: "t", Content: "c", DropType: "context"})
	require.NoError(t, err)
	assert.Equal(t, "d1", created.ID)
	assert.Equal(t, "context", created.Type)

	list, err := c.ListDrops(ctx, DropFilter{From: "openclaw", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	read, err := c.ReadDrop(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "body", read.Content)

	_, err = c.ReadDrop(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAgentDrops_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("e", 2000), http.StatusBadGateway)
	})

	_, err := c.ListDrops(context.Background(), DropFilter{})

	require.Error(t, err)
	hubErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrUpstream, hubErr.Code)
	assert.LessOrEqual(t, len(hubErr.Details["body"].(string)), errorExcerptChars+3)
}
