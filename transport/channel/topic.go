package channel

import "strings"

// LobbyTopic is the always-available directory channel.
const LobbyTopic = "coworking_session:lobby"

const topicPrefix = "coworking_session:"

// SessionTopic returns the topic string for a specific session's channel.
func SessionTopic(sessionID string) string {
	return topicPrefix + sessionID
}

// IsCoworkingTopic reports whether the topic belongs to the coworking
// channel namespace (lobby or session-specific). Envelopes outside this
// namespace are not routed to the reconciler.
func IsCoworkingTopic(topic string) bool {
	return strings.HasPrefix(topic, topicPrefix)
}

// SessionIDFromTopic extracts the session id from a session-specific topic,
// returning "" for the lobby topic or anything outside the namespace.
func SessionIDFromTopic(topic string) string {
	if !IsCoworkingTopic(topic) || topic == LobbyTopic {
		return ""
	}
	return strings.TrimPrefix(topic, topicPrefix)
}
