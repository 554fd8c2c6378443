package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/opoerator/drophub/internal/errors"
	"github.com/opoerator/drophub/internal/format"
)

// MaxCallChars caps the text returned by Call.
const MaxCallChars = 8000

// APIPrefix is the only path prefix Call will forward.
const APIPrefix = "/api/"

// CallRequest describes an arbitrary hub API call.
type CallRequest struct {
	Method string // defaults to GET
	Path   string // must start with /api/
	Body   any    // JSON-encoded when non-nil
	Query  string // JSON object, e.g. {"limit":5}; empty for none
}

// ParseQuery decodes a JSON object into URL query values. Nested values are
// sent as their JSON encoding; nulls are dropped.
func ParseQuery(raw string) (url.Values, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query must be a JSON object: %v", err))
	}
	q := url.Values{}
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			q.Set(k, val)
		case float64:
			q.Set(k, strconv.FormatFloat(val, 'f', -1, 64))
		case bool:
			q.Set(k, strconv.FormatBool(val))
		default:
			b, _ := json.Marshal(val)
			q.Set(k, string(b))
		}
	}
	return q, nil
}

// ValidateCall checks req without touching the network and returns the path
// to request and the merged query. A query string already present in
// req.Path is kept; keys from req.Query override it.
func ValidateCall(req CallRequest) (string, url.Values, error) {
	if !strings.HasPrefix(req.Path, APIPrefix) {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("path must start with %s", APIPrefix))
	}
	u, err := url.Parse(req.Path)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("invalid path: %s", req.Path))
	}
	extra, err := ParseQuery(req.Query)
	if err != nil {
		return "", nil, err
	}

	query := u.Query()
	for k, vs := range extra {
		query[k] = vs
	}
	return u.EscapedPath(), query, nil
}

// Call forwards req to the hub and renders the response as text. JSON
// responses go through format.Format; anything longer than MaxCallChars is
// cut with a truncation marker.
func (c *Client) Call(ctx context.Context, req CallRequest) (string, error) {
	path, query, err := ValidateCall(req)
	if err != nil {
		return "", err
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	data, status, err := c.do(ctx, method, path, query, req.Body)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", errors.NewUpstream(status, excerpt(data, errorExcerptChars))
	}
	return RenderBody(path, data), nil
}

// RenderBody turns a successful response body into bounded text.
func RenderBody(path string, data []byte) string {
	if len(strings.TrimSpace(string(data))) == 0 {
		return "(empty response)"
	}
	if gjson.ValidBytes(data) {
		text := format.Format(path, data)
		if utf8.RuneCountInString(text) > MaxCallChars {
			return string([]rune(text)[:MaxCallChars]) + "\n...[truncated]"
		}
		return text
	}
	text := string(data)
	if n := utf8.RuneCountInString(text); n > MaxCallChars {
		return string([]rune(text)[:MaxCallChars]) + fmt.Sprintf("\n...[truncated, %d chars total]", n)
	}
	return text
}
