package domain

import "time"

// EventType names a domain transition recorded in the game event log.
type EventType string

const (
	EventGameStarted       EventType = "game-started"
	EventGamePaused        EventType = "game-paused"
	EventGameResumed       EventType = "game-resumed"
	EventGameEnded         EventType = "game-ended"
	EventRoundStarted      EventType = "round-started"
	EventRoundCompleted    EventType = "round-completed"
	EventQuestionPresented EventType = "question-presented"
	EventQuestionSkipped   EventType = "question-skipped"
	EventTimerExpired      EventType = "timer-expired"
	EventAnswersLocked     EventType = "answers-locked"
	EventAnswersRevealed   EventType = "answers-revealed"
	EventPlayerAdded       EventType = "player-added"
	EventPlayerRemoved     EventType = "player-removed"
	EventTeamFormed        EventType = "team-formed"
	EventActionFailed      EventType = "action-failed"

	EventSubmissionCreated EventType = "SUBMISSION_CREATED"
	EventSubmissionUpdated EventType = "SUBMISSION_UPDATED"
	EventSubmissionLocked  EventType = "SUBMISSION_LOCKED"

	EventScoreUpdated       EventType = "scoreUpdated"
	EventScoreRecalculated  EventType = "scoreRecalculated"
	EventScoresReset        EventType = "scoresReset"
	EventLeaderboardUpdated EventType = "leaderboardUpdated"
)

// GameEvent is one entry in the append-only game event log. Optional fields
// are populated per event type; unused ones stay zero.
type GameEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	GameID        string    `json:"gameId"`
	ParticipantID string    `json:"participantId,omitempty"`
	QuestionID    string    `json:"questionId,omitempty"`
	RoundNumber   int       `json:"roundNumber,omitempty"`
	PointValue    int       `json:"pointValue,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
