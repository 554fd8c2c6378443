package hydrate

import (
	"context"
	"regexp"
	"strings"

	"github.com/opoerator/drophub/internal/hub"
	"github.com/opoerator/drophub/internal/identity"
)

// Connect replies.
const (
	MsgConnectNoPhone  = "Could not identify your phone number. Connect codes can only be redeemed from a phone."
	MsgConnected       = "Connected! This number is now linked to your account, so your drops and context will follow you here."
	MsgConnectRejected = "Invalid or expired code. Get a fresh code from your dashboard and send CONNECT <code>."
)

var connectPattern = regexp.MustCompile(`^CONNECT\s+([A-Z0-9]{6})$`)

// ParseConnectCommand returns the code from a "CONNECT XXXXXX" message.
// Matching is case-insensitive and the whole message must be the command.
func ParseConnectCommand(text string) (string, bool) {
	m := connectPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(text)))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ConnectRequest is a connect command received on a channel.
type ConnectRequest struct {
	Code    string
	From    string
	Channel string
}

// ConnectResult is the reply to send back to the sender.
type ConnectResult struct {
	Success bool
	Message string
}

// HandleConnectCommand verifies a connect code for the sender's phone.
func (a *Aggregator) HandleConnectCommand(ctx context.Context, req ConnectRequest) ConnectResult {
	id, ok := identity.Extract(req.From)
	if !ok || id.Kind != identity.Phone {
		return ConnectResult{Message: MsgConnectNoPhone}
	}

	var res *hub.VerifyResult
	if a.opts.Remote != nil {
		res = a.opts.Remote.VerifyCode(ctx, hub.VerifyRequest{Code: req.Code, Phone: id.Value, Channel: req.Channel})
	}
	if !res.OK() {
		if res != nil && strings.TrimSpace(res.Message) != "" {
			return ConnectResult{Message: res.Message}
		}
		return ConnectResult{Message: MsgConnectRejected}
	}

	a.logger.Info("identity linked", "identity", id.Kind, "user_id", res.UserID, "channel", req.Channel)
	if a.opts.Links != nil {
		if err := a.opts.Links.RecordLink(ctx, id, res.UserID, req.Channel); err != nil {
			a.logger.Warn("record link failed", "error", err)
		}
	}
	return ConnectResult{Success: true, Message: MsgConnected}
}
