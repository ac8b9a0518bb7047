package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

type fakePoster struct {
	channels []string
	err      error
}

func (f *fakePoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	return channelID, "1234.5678", f.err
}

func TestNewSlackNotifierRequiresConfig(t *testing.T) {
	if n := NewSlackNotifier("", "C123"); n != nil {
		t.Fatal("expected nil notifier without token")
	}
	if n := NewSlackNotifier("xoxb-token", ""); n != nil {
		t.Fatal("expected nil notifier without channel")
	}
}

func TestTaskFinishedPosts(t *testing.T) {
	f := &fakePoster{}
	n := &SlackNotifier{api: f, channel: "C123", timeout: 0}

	n.TaskFinished("engineer", "completed", "done")
	if len(f.channels) != 1 || f.channels[0] != "C123" {
		t.Fatalf("expected one post to C123, got %v", f.channels)
	}
}

func TestTaskFinishedSwallowsErrors(t *testing.T) {
	f := &fakePoster{err: errors.New("channel_not_found")}
	n := &SlackNotifier{api: f, channel: "C123"}

	// Must not panic or surface the error.
	n.TaskFinished("engineer", "failed", strings.Repeat("x", 1000))
	if len(f.channels) != 1 {
		t.Fatal("expected the post attempt despite the error")
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *SlackNotifier
	n.TaskFinished("engineer", "completed", "done")
}
