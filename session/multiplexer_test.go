package session

import (
	"slices"
	"testing"

	"github.com/cowork-labs/cowork-core/transport/channel"
)

func TestMultiplexerJoinLeave(t *testing.T) {
	transport := &fakeTransport{}
	mux := newMultiplexer(transport)

	t.Run("join emits once", func(t *testing.T) {
		ref := mux.join(channel.LobbyTopic)
		if ref == "" {
			t.Error("join must stamp a ref")
		}
		if mux.join(channel.LobbyTopic) != "" {
			t.Error("second join of the same topic must be a no-op")
		}
		if transport.count() != 1 {
			t.Errorf("expected a single join frame, got %v", transport.events())
		}
		if !mux.isJoined(channel.LobbyTopic) {
			t.Error("membership not recorded")
		}
	})

	t.Run("leave joined topic", func(t *testing.T) {
		if !mux.leave(channel.LobbyTopic) {
			t.Error("expected leave to emit")
		}
		if mux.isJoined(channel.LobbyTopic) {
			t.Error("membership not dropped")
		}
	})

	t.Run("leave unjoined topic emits nothing", func(t *testing.T) {
		transport.clear()
		if mux.leave("coworking_session:ghost") {
			t.Error("leave of an unjoined topic must not emit")
		}
		if transport.count() != 0 {
			t.Errorf("unexpected frames: %v", transport.events())
		}
	})
}

func TestMultiplexerSwitchToSession(t *testing.T) {
	transport := &fakeTransport{}
	mux := newMultiplexer(transport)
	mux.join(channel.LobbyTopic)
	transport.clear()

	mux.switchToSession("abc", "me")

	want := []string{
		"phx_leave coworking_session:lobby",
		"phx_join coworking_session:abc",
		"join_session coworking_session:abc",
	}
	if got := transport.events(); !slices.Equal(got, want) {
		t.Fatalf("switch sequence mismatch:\n got  %v\n want %v", got, want)
	}

	frames := transport.envelopes()
	if frames[2].Payload["user_id"] != "me" {
		t.Errorf("join_session must carry the user id, got %v", frames[2].Payload)
	}
}

// Switching while another session topic is still joined must leave it
// before joining the new one.
func TestMultiplexerSwitchLeavesPreviousSession(t *testing.T) {
	transport := &fakeTransport{}
	mux := newMultiplexer(transport)
	mux.join(channel.LobbyTopic)
	mux.join(channel.SessionTopic("old"))
	transport.clear()

	mux.switchToSession("new", "me")

	events := transport.events()
	leaveIdx := slices.Index(events, "phx_leave coworking_session:old")
	joinIdx := slices.Index(events, "phx_join coworking_session:new")
	if leaveIdx == -1 || joinIdx == -1 || leaveIdx > joinIdx {
		t.Fatalf("old session must be left before joining the new one: %v", events)
	}
	if mux.isJoined(channel.SessionTopic("old")) {
		t.Error("old membership not dropped")
	}
}

func TestMultiplexerDrop(t *testing.T) {
	transport := &fakeTransport{}
	mux := newMultiplexer(transport)
	mux.join(channel.SessionTopic("abc"))
	transport.clear()

	mux.drop(channel.SessionTopic("abc"))

	if transport.count() != 0 {
		t.Errorf("drop must not emit frames: %v", transport.events())
	}
	if mux.isJoined(channel.SessionTopic("abc")) {
		t.Error("membership not forgotten")
	}
}

func TestMultiplexerReset(t *testing.T) {
	transport := &fakeTransport{}
	mux := newMultiplexer(transport)
	mux.join(channel.LobbyTopic)
	mux.join(channel.SessionTopic("abc"))

	mux.reset()

	if mux.isJoined(channel.LobbyTopic) || mux.isJoined(channel.SessionTopic("abc")) {
		t.Error("reset must forget all membership")
	}
}
