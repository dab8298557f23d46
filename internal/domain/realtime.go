package domain

import "time"

// BroadcastType names the envelope kinds carried on the real-time channel.
type BroadcastType string

const (
	BroadcastMemberReady     BroadcastType = "member_ready"
	BroadcastMemberUnready   BroadcastType = "member_unready"
	BroadcastAnswerSubmitted BroadcastType = "answer_submitted"
	BroadcastScoreUpdated    BroadcastType = "score_updated"
	BroadcastQuestionStarted BroadcastType = "question_started"
	BroadcastQuestionEnded   BroadcastType = "question_ended"

	// Connection-scoped frames share the envelope format.
	BroadcastJoined        BroadcastType = "joined"
	BroadcastStateChanged  BroadcastType = "state_changed"
	BroadcastPresenceState BroadcastType = "presence_state"
	BroadcastError         BroadcastType = "error"
)

// Envelope is the wire frame for broadcast events on a (room, team) channel.
type Envelope struct {
	ID         string        `json:"id"`
	Type       BroadcastType `json:"type"`
	TeamID     string        `json:"teamId,omitempty"`
	GameRoomID string        `json:"gameRoomId"`
	UserID     string        `json:"userId,omitempty"`
	Payload    any           `json:"payload,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// PresenceStatus is a member's connection state on the presence feed.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
	PresenceReady   PresenceStatus = "ready"
	PresenceInGame  PresenceStatus = "in_game"
)
