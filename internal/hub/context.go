package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/opoerator/drophub/internal/drop"
	"github.com/opoerator/drophub/internal/identity"
)

// Limits caps the number of records the hub returns per category.
type Limits struct {
	Drops    int
	Sessions int
	Digests  int
}

func (l Limits) query() url.Values {
	q := url.Values{}
	q.Set("drops_limit", strconv.Itoa(l.Drops))
	q.Set("sessions_limit", strconv.Itoa(l.Sessions))
	q.Set("digests_limit", strconv.Itoa(l.Digests))
	return q
}

// HydrationResponse is the hub's answer to a hydrate call. Matched is only
// meaningful for identity lookups: false means the identity is unknown, true
// with empty lists means it is linked but has no context yet.
type HydrationResponse struct {
	Status   string         `json:"status"`
	UserID   string         `json:"user_id"`
	Matched  bool           `json:"matched"`
	Drops    []drop.Drop    `json:"drops"`
	Sessions []drop.Session `json:"sessions"`
	Digests  []drop.Digest  `json:"digests"`
}

// VerifyRequest is the body of a connect-code verification.
type VerifyRequest struct {
	Code    string `json:"code"`
	Phone   string `json:"phone"`
	Channel string `json:"channel"`
}

// VerifyResult is the hub's verification verdict.
type VerifyResult struct {
	Status  string `json:"status"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the code was accepted.
func (r *VerifyResult) OK() bool { return r != nil && r.Status == "ok" }

// IngestRequest captures one message as a drop.
type IngestRequest struct {
	Source        string         `json:"source"`
	Content       string         `json:"content"`
	IdentityType  string         `json:"identity_type"`
	IdentityValue string         `json:"identity_value"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// IngestResult is the hub's answer to an ingest.
type IngestResult struct {
	Status  string `json:"status"`
	VaultID string `json:"vault_id,omitempty"`
}

// OK reports whether the drop was stored.
func (r *IngestResult) OK() bool { return r != nil && r.Status == "ok" }

// FetchByFallbackID hydrates the configured fallback account. Returns nil
// when no user id is configured or the call fails.
func (c *Client) FetchByFallbackID(ctx context.Context, limits Limits) *HydrationResponse {
	if c.userID == "" {
		return nil
	}
	path := "/api/hydrate/" + url.PathEscape(c.userID)
	var out HydrationResponse
	if err := c.doJSON(ctx, http.MethodGet, path, limits.query(), nil, &out); err != nil {
		c.logger.Warn("hub hydrate failed", "op", "fetch_by_fallback_id", "error", err)
		return nil
	}
	return &out
}

// FetchByIdentity hydrates whichever account id is linked to. Returns nil
// when the call fails.
func (c *Client) FetchByIdentity(ctx context.Context, id identity.Identity, limits Limits) *HydrationResponse {
	q := limits.query()
	q.Set("identity_type", string(id.Kind))
	q.Set("identity_value", id.Value)

	var out HydrationResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/hydrate/by-identity", q, nil, &out); err != nil {
		c.logger.Warn("hub hydrate failed", "op", "fetch_by_identity", "identity", id.Kind, "error", err)
		return nil
	}
	return &out
}

// VerifyCode checks a connect code. Returns nil when the call fails; a
// rejected code comes back as a non-ok result, usually with a message.
func (c *Client) VerifyCode(ctx context.Context, req VerifyRequest) *VerifyResult {
	var out VerifyResult
	data, status, err := c.do(ctx, http.MethodPost, "/api/channels/verify-code", nil, req)
	if err != nil {
		c.logger.Warn("hub verify-code failed", "error", err)
		return nil
	}
	// Rejections arrive as 4xx with a JSON body carrying the reason.
	if jsonErr := json.Unmarshal(data, &out); jsonErr != nil || out.Status == "" {
		c.logger.Warn("hub verify-code failed", "status", status, "body", excerpt(data, errorExcerptChars))
		return nil
	}
	if status < 200 || status > 299 {
		c.logger.Warn("hub verify-code rejected", "status", status, "message", out.Message)
	}
	return &out
}

// IngestDrop stores a captured message. Returns nil when the call fails.
func (c *Client) IngestDrop(ctx context.Context, req IngestRequest) *IngestResult {
	var out IngestResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/ingest", nil, req, &out); err != nil {
		c.logger.Warn("hub ingest failed", "source", req.Source, "error", err)
		return nil
	}
	return &out
}

// IsFirstTimeSender reports whether id has no linked account. Any failure
// counts as first-time.
func (c *Client) IsFirstTimeSender(ctx context.Context, id identity.Identity) bool {
	resp := c.FetchByIdentity(ctx, id, Limits{})
	return resp == nil || !resp.Matched || resp.UserID == ""
}
