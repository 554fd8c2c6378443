package hydrate

import (
	"context"
	"crypto/rand"
	"maps"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/opoerator/drophub/internal/hub"
	"github.com/opoerator/drophub/internal/identity"
)

// WelcomeMessage is sent once to a sender with no linked account.
const WelcomeMessage = `Welcome! I've saved your message as a drop.

Everything you send here is captured to your notes. To link this number to your account, grab a code from your dashboard and reply:

CONNECT <code>`

// minCaptureChars is the shortest message worth capturing.
const minCaptureChars = 2

// defaultSource is used when a capture names no channel.
const defaultSource = "hook"

// IsFirstTimeSender reports whether from has no linked account. Without a
// hub, or when from has no recognizable identity, every sender is
// first-time.
func (a *Aggregator) IsFirstTimeSender(ctx context.Context, from string) bool {
	if a.opts.Remote == nil {
		return true
	}
	id, ok := identity.Extract(from)
	if !ok {
		return true
	}
	return a.opts.Remote.IsFirstTimeSender(ctx, id)
}

// CaptureRequest is one inbound message to store as a drop.
type CaptureRequest struct {
	From     string
	Content  string
	Channel  string
	Metadata map[string]any
}

// CaptureMessage ingests req into the sender's vault. It reports whether
// the hub accepted it.
func (a *Aggregator) CaptureMessage(ctx context.Context, req CaptureRequest) bool {
	id, ok := identity.Extract(req.From)
	if !ok {
		a.logger.Warn("capture skipped: no identity in sender", "channel", req.Channel)
		return false
	}
	if a.opts.Remote == nil {
		a.logger.Warn("capture skipped: hub not configured", "channel", req.Channel)
		return false
	}

	source := req.Channel
	if source == "" {
		source = defaultSource
	}
	meta := make(map[string]any, len(req.Metadata)+2)
	maps.Copy(meta, req.Metadata)
	meta["channel"] = source
	meta["capture_id"] = newCaptureID(a.now())

	res := a.opts.Remote.IngestDrop(ctx, hub.IngestRequest{
		Source:        source,
		Content:       req.Content,
		IdentityType:  string(id.Kind),
		IdentityValue: id.Value,
		Metadata:      meta,
	})
	return res.OK()
}

func newCaptureID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// MessageEvent is an inbound message delivered by the host.
type MessageEvent struct {
	SessionKey string
	Channel    string
	Text       string
	Metadata   map[string]any
}

// Reply is a direct answer to a message. Suppress tells the host not to
// run the model for this message.
type Reply struct {
	Text     string `json:"reply"`
	Suppress bool   `json:"suppress"`
}

// MessageHandler is implemented by Aggregator for hosts that dispatch
// inbound messages.
type MessageHandler interface {
	OnMessageReceived(ctx context.Context, ev MessageEvent) *Reply
}

var _ MessageHandler = (*Aggregator)(nil)

// OnMessageReceived applies the capture policy to ev. It returns nil when
// there is nothing to say back.
func (a *Aggregator) OnMessageReceived(ctx context.Context, ev MessageEvent) *Reply {
	if !a.opts.CaptureEnabled {
		return nil
	}
	if a.channels != nil && !a.channels[ev.Channel] {
		return nil
	}
	if utf8.RuneCountInString(ev.Text) < minCaptureChars {
		return nil
	}

	if code, ok := ParseConnectCommand(ev.Text); ok {
		res := a.HandleConnectCommand(ctx, ConnectRequest{Code: code, From: ev.SessionKey, Channel: ev.Channel})
		return &Reply{Text: res.Message, Suppress: true}
	}

	capture := CaptureRequest{From: ev.SessionKey, Content: ev.Text, Channel: ev.Channel, Metadata: ev.Metadata}

	if a.markWelcomed(ev.SessionKey) && a.IsFirstTimeSender(ctx, ev.SessionKey) {
		a.CaptureMessage(ctx, capture)
		return &Reply{Text: WelcomeMessage}
	}

	a.CaptureMessage(ctx, capture)
	return nil
}

// markWelcomed records key and reports whether it was new.
func (a *Aggregator) markWelcomed(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.welcomed[key] {
		return false
	}
	a.welcomed[key] = true
	return true
}
