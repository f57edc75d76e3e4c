package channel

import (
	"strings"
	"testing"
)

func TestEnvelopeEncode(t *testing.T) {
	t.Run("nil payload becomes empty object", func(t *testing.T) {
		data, err := Envelope{Topic: LobbyTopic, Event: EventJoin}.Encode()
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if !strings.Contains(string(data), `"payload":{}`) {
			t.Errorf("expected empty payload object, got %s", data)
		}
	})

	t.Run("ref omitted when empty", func(t *testing.T) {
		data, err := Envelope{Topic: LobbyTopic, Event: EventJoin}.Encode()
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if strings.Contains(string(data), `"ref"`) {
			t.Errorf("expected ref to be omitted, got %s", data)
		}
	})

	t.Run("empty topic rejected", func(t *testing.T) {
		if _, err := (Envelope{Event: EventJoin}).Encode(); err != ErrEmptyTopic {
			t.Errorf("expected ErrEmptyTopic, got %v", err)
		}
	})
}

func TestDecodeEnvelope(t *testing.T) {
	t.Run("server push without ref", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"topic":"coworking_session:abc","event":"lobby_update","payload":{"userIds":["u1"]},"ref":null}`))
		if err != nil {
			t.Fatalf("DecodeEnvelope failed: %v", err)
		}
		if env.Ref != "" {
			t.Errorf("expected empty ref, got %q", env.Ref)
		}
		if env.Event != EventLobbyUpdate {
			t.Errorf("expected event %q, got %q", EventLobbyUpdate, env.Event)
		}
	})

	t.Run("missing payload becomes empty map", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"topic":"coworking_session:lobby","event":"phx_close"}`))
		if err != nil {
			t.Fatalf("DecodeEnvelope failed: %v", err)
		}
		if env.Payload == nil {
			t.Error("expected non-nil payload map")
		}
	})

	t.Run("malformed frame", func(t *testing.T) {
		if _, err := DecodeEnvelope([]byte(`not json`)); err == nil {
			t.Error("expected error for malformed frame")
		}
	})

	t.Run("empty topic", func(t *testing.T) {
		if _, err := DecodeEnvelope([]byte(`{"event":"phx_reply","payload":{}}`)); err != ErrEmptyTopic {
			t.Errorf("expected ErrEmptyTopic, got %v", err)
		}
	})
}

func TestTopicHelpers(t *testing.T) {
	if got := SessionTopic("abc"); got != "coworking_session:abc" {
		t.Errorf("SessionTopic: got %q", got)
	}
	if !IsCoworkingTopic(LobbyTopic) {
		t.Error("lobby topic should be in the coworking namespace")
	}
	if IsCoworkingTopic("presence:global") {
		t.Error("foreign topic should not be in the coworking namespace")
	}
	if got := SessionIDFromTopic("coworking_session:abc"); got != "abc" {
		t.Errorf("SessionIDFromTopic: got %q", got)
	}
	if got := SessionIDFromTopic(LobbyTopic); got != "" {
		t.Errorf("lobby topic has no session id, got %q", got)
	}
	if got := SessionIDFromTopic("presence:global"); got != "" {
		t.Errorf("foreign topic has no session id, got %q", got)
	}
}
