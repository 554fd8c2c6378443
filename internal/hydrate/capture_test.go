package hydrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opoerator/drophub/internal/hub"
)

func TestIsFirstTimeSender_NoRemote(t *testing.T) {
	a := newTestAggregator(t, nil, newFakeClock(), nil)

	for _, from := range []string{"+15551234567", "jane@example.com", "", "agent:main"} {
		assert.True(t, a.IsFirstTimeSender(context.Background(), from), from)
	}
}

func TestIsFirstTimeSender_Delegates(t *testing.T) {
	remote := &fakeRemote{firstTime: false}
	a := newTestAggregator(t, remote, newFakeClock(), nil)

	assert.False(t, a.IsFirstTimeSender(context.Background(), "+15551234567"))
	assert.True(t, a.IsFirstTimeSender(context.Background(), "agent:main"))
	assert.Equal(t, 1, remote.firstTimeCalls)
}

func TestCaptureMessage(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok", VaultID: "v1"}}
	a := newTestAggregator(t, remote, newFakeClock(), nil)

	ok := a.CaptureMessage(context.Background(), CaptureRequest{
		From:     "agent:imessage:Jane@Example.com",
		Content:  "buy milk",
		Channel:  "imessage",
		Metadata: map[string]any{"thread": "t1"},
	})

	assert.True(t, ok)
	require.Len(t, remote.ingestCalls, 1)
	req := remote.ingestCalls[0]
	assert.Equal(t, "imessage", req.Source)
	assert.Equal(t, "email", req.IdentityType)
	assert.Equal(t, "jane@example.com", req.IdentityValue)
	assert.Equal(t, "t1", req.Metadata["thread"])
	assert.Equal(t, "imessage", req.Metadata["channel"])
	assert.Len(t, req.Metadata["capture_id"], 26)
}

func TestCaptureMessage_UniqueCaptureIDs(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}}
	a := newTestAggregator(t, remote, newFakeClock(), nil)
	ctx := context.Background()

	for range 5 {
		a.CaptureMessage(ctx, CaptureRequest{From: "+15551234567", Content: "same"})
	}

	seen := map[any]bool{}
	for _, req := range remote.ingestCalls {
		seen[req.Metadata["capture_id"]] = true
		assert.Equal(t, defaultSource, req.Source)
	}
	assert.Len(t, seen, 5)
}

func TestCaptureMessage_NoIdentityMakesNoCall(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}}
	a := newTestAggregator(t, remote, newFakeClock(), nil)

	assert.False(t, a.CaptureMessage(context.Background(), CaptureRequest{From: "agent:main", Content: "hi there"}))
	assert.Empty(t, remote.ingestCalls)
}

func TestCaptureMessage_RejectedOrFailed(t *testing.T) {
	for _, res := range []*hub.IngestResult{nil, {Status: "error"}} {
		remote := &fakeRemote{ingest: res}
		a := newTestAggregator(t, remote, newFakeClock(), nil)
		assert.False(t, a.CaptureMessage(context.Background(), CaptureRequest{From: "+15551234567", Content: "x"}))
	}
}

func captureOn(o *Options) { o.CaptureEnabled = true }

func TestOnMessageReceived_Disabled(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}, firstTime: true}
	a := newTestAggregator(t, remote, newFakeClock(), nil)

	assert.Nil(t, a.OnMessageReceived(context.Background(), MessageEvent{SessionKey: "+15551234567", Text: "hello"}))
	assert.Empty(t, remote.ingestCalls)
	assert.Zero(t, remote.firstTimeCalls)
}

func TestOnMessageReceived_ChannelAllowList(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}}
	a := newTestAggregator(t, remote, newFakeClock(), func(o *Options) {
		captureOn(o)
		o.CaptureChannels = []string{"sms"}
	})
	ctx := context.Background()

	assert.Nil(t, a.OnMessageReceived(ctx, MessageEvent{SessionKey: "+15551234567", Channel: "slack", Text: "CONNECT ABC123"}))
	assert.Empty(t, remote.verifyCalls)
	assert.Empty(t, remote.ingestCalls)

	a.OnMessageReceived(ctx, MessageEvent{SessionKey: "+15551234567", Channel: "sms", Text: "hello"})
	assert.Len(t, remote.ingestCalls, 1)
}

func TestOnMessageReceived_ShortTextIgnored(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}, firstTime: true}
	a := newTestAggregator(t, remote, newFakeClock(), captureOn)

	assert.Nil(t, a.OnMessageReceived(context.Background(), MessageEvent{SessionKey: "+15551234567", Text: "k"}))
	assert.Empty(t, remote.ingestCalls)
	assert.Zero(t, remote.firstTimeCalls)
}

func TestOnMessageReceived_ConnectSuppresses(t *testing.T) {
	remote := &fakeRemote{verify: &hub.VerifyResult{Status: "ok", UserID: "u1"}}
	a := newTestAggregator(t, remote, newFakeClock(), captureOn)

	reply := a.OnMessageReceived(context.Background(), MessageEvent{SessionKey: "+15551234567", Channel: "sms", Text: "connect abc123"})

	require.NotNil(t, reply)
	assert.True(t, reply.Suppress)
	assert.Equal(t, MsgConnected, reply.Text)
	assert.Empty(t, remote.ingestCalls)
	assert.Zero(t, remote.firstTimeCalls)
}

func TestOnMessageReceived_WelcomeOnce(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}, firstTime: true}
	a := newTestAggregator(t, remote, newFakeClock(), captureOn)
	ctx := context.Background()
	ev := MessageEvent{SessionKey: "+15551234567", Channel: "sms", Text: "hello there"}

	first := a.OnMessageReceived(ctx, ev)
	require.NotNil(t, first)
	assert.Equal(t, WelcomeMessage, first.Text)
	assert.False(t, first.Suppress)

	assert.Nil(t, a.OnMessageReceived(ctx, ev))
	assert.Equal(t, 1, remote.firstTimeCalls)
	assert.Len(t, remote.ingestCalls, 2)
}

func TestOnMessageReceived_KnownSenderCapturesSilently(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}, firstTime: false}
	a := newTestAggregator(t, remote, newFakeClock(), captureOn)

	assert.Nil(t, a.OnMessageReceived(context.Background(), MessageEvent{SessionKey: "+15551234567", Text: "hello"}))
	assert.Len(t, remote.ingestCalls, 1)
	assert.Equal(t, 1, remote.firstTimeCalls)
}

func TestOnMessageReceived_WelcomedSurvivesUntilClose(t *testing.T) {
	remote := &fakeRemote{ingest: &hub.IngestResult{Status: "ok"}, firstTime: true}
	a := newTestAggregator(t, remote, newFakeClock(), captureOn)
	ctx := context.Background()
	ev := MessageEvent{SessionKey: "+15551234567", Text: "hello"}

	require.NotNil(t, a.OnMessageReceived(ctx, ev))
	a.Close()
	assert.NotNil(t, a.OnMessageReceived(ctx, ev))
}
