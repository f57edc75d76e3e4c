package reconcile

import (
	"fmt"

	"github.com/cowork-labs/cowork-core/service"
	"github.com/cowork-labs/cowork-core/transport/channel"
)

// Decode classifies an inbound envelope into exactly one message kind.
//
// Classification is ordered, first match wins, because payload shapes are
// structurally ambiguous across kinds. The most field-rich shape is tried
// first so an overlapping payload resolves to the most specific kind:
//
//  1. SessionDescribed (payload.response.fields present)
//  2. LobbyRosterUpdated (payload.userIds present)
//  3. status-bearing ack or error (payload.status present)
//  4. Unrecognized fallback
//
// Changing this order is a breaking change; the decode tests pin it.
func Decode(env channel.Envelope) Message {
	if !channel.IsCoworkingTopic(env.Topic) {
		return Unrecognized{Envelope: env}
	}
	if msg, ok := decodeSessionDescribed(env); ok {
		return msg
	}
	if msg, ok := decodeRosterUpdate(env); ok {
		return msg
	}
	if msg, ok := decodeStatusReply(env); ok {
		return msg
	}
	if env.Event == channel.EventClose {
		return CloseAck{Topic: env.Topic}
	}
	return Unrecognized{Envelope: env}
}

func decodeSessionDescribed(env channel.Envelope) (Message, bool) {
	resp, ok := env.Payload["response"].(map[string]any)
	if !ok {
		return nil, false
	}
	fields, ok := resp["fields"].(map[string]any)
	if !ok {
		return nil, false
	}
	name, ok := unwrapString(fields["name"])
	if !ok {
		return nil, false
	}

	resource, _ := resp["name"].(string)
	sess := service.Session{
		ID:   lastPathSegment(resource),
		Name: name,
	}
	if desc, ok := unwrapString(fields["description"]); ok {
		sess.Description = desc
	}
	if pw, ok := unwrapString(fields["password"]); ok {
		sess.Password = pw
	}
	if ids, ok := unwrapStringList(fields["userIds"]); ok {
		sess.UserIDs = ids
	}

	return SessionDescribed{Topic: env.Topic, Ref: env.Ref, Session: sess}, true
}

func decodeRosterUpdate(env channel.Envelope) (Message, bool) {
	raw, present := env.Payload["userIds"]
	if !present {
		return nil, false
	}
	ids, ok := unwrapStringList(raw)
	if !ok {
		return nil, false
	}
	return LobbyRosterUpdated{Topic: env.Topic, UserIDs: ids}, true
}

func decodeStatusReply(env channel.Envelope) (Message, bool) {
	status, ok := env.Payload["status"].(string)
	if !ok {
		return nil, false
	}
	switch status {
	case "error":
		return ErrorReported{
			Topic:  env.Topic,
			Ref:    env.Ref,
			Reason: errorReason(env.Payload["response"]),
		}, true
	case "ok":
		if env.Event == channel.EventClose {
			return CloseAck{Topic: env.Topic}, true
		}
		return JoinAck{Topic: env.Topic, Ref: env.Ref}, true
	default:
		return nil, false
	}
}

func errorReason(v any) string {
	switch reason := unwrapValue(v).(type) {
	case nil:
		return "unknown error"
	case string:
		return reason
	default:
		return fmt.Sprintf("%v", reason)
	}
}
