package hub

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// AgentDrop is a drop as stored by the hub's agent-drops API.
type AgentDrop struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	Type      string   `json:"type"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content,omitempty"`
	CDNURL    string   `json:"cdn_url,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// NewDrop is the body of a drop creation.
type NewDrop struct {
	FromAgent string   `json:"from_agent"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	DropType  string   `json:"drop_type"`
	Tags      []string `json:"tags"`
}

// DropFilter narrows ListDrops. Zero fields are not sent.
type DropFilter struct {
	From  string
	Type  string
	Since string // ISO timestamp
	Limit int
}

type dropEnvelope struct {
	Drop AgentDrop `json:"drop"`
}

type dropList struct {
	Drops []AgentDrop `json:"drops"`
}

// CreateDrop posts a new drop; the hub uploads it to the CDN when it can.
func (c *Client) CreateDrop(ctx context.Context, d NewDrop) (*AgentDrop, error) {
	if d.Tags == nil {
		d.Tags = []string{}
	}
	var out dropEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent-drops", nil, d, &out); err != nil {
		return nil, err
	}
	return &out.Drop, nil
}

// ListDrops lists drops matching f.
func (c *Client) ListDrops(ctx context.Context, f DropFilter) ([]AgentDrop, error) {
	q := url.Values{}
	if f.From != "" {
		q.Set("from_agent", f.From)
	}
	if f.Type != "" {
		q.Set("drop_type", f.Type)
	}
	if f.Since != "" {
		q.Set("since", f.Since)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var out dropList
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent-drops", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Drops, nil
}

// ReadDrop fetches one drop by id.
func (c *Client) ReadDrop(ctx context.Context, id string) (*AgentDrop, error) {
	var out dropEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent-drops/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Drop, nil
}
