package domain

import "time"

// Action is the closed set of commands a game manager will dispatch. Every
// variant embeds ActionBase so the dispatcher can check the addressed game id
// and timestamp before looking at the payload. The set is closed: new kinds
// require a new struct here and a matching dispatcher arm.
type Action interface {
	Base() ActionBase
}

// ActionBase carries the routing fields every action must declare.
type ActionBase struct {
	GameID    string    `json:"gameId"`
	Timestamp time.Time `json:"timestamp"`
}

// Base implements Action for every variant that embeds ActionBase.
func (b ActionBase) Base() ActionBase { return b }

// StartGame begins the game; requires at least one registered participant.
type StartGame struct {
	ActionBase
}

// PauseGame freezes all active timers without clearing their remaining time.
type PauseGame struct {
	ActionBase
}

// ResumeGame recomputes timer deadlines by the elapsed-pause offset.
type ResumeGame struct {
	ActionBase
}

// EndGame is valid from any state; clears timers and completes the game.
type EndGame struct {
	ActionBase
}

// StartRound activates round Number and moves the round pointer to it.
type StartRound struct {
	ActionBase
	Number int `json:"number"`
}

// EndRound retires the active round.
type EndRound struct {
	ActionBase
}

// PresentQuestion loads the question at Index in the active round and starts
// its countdown timer.
type PresentQuestion struct {
	ActionBase
	Index int `json:"index"`
}

// AdvanceQuestion presents the next question in the active round.
type AdvanceQuestion struct {
	ActionBase
}

// SkipQuestion moves past the current question without grading it.
type SkipQuestion struct {
	ActionBase
}

// SubmitAnswer records an answer through the submission manager.
type SubmitAnswer struct {
	ActionBase
	ParticipantID string `json:"participantId"`
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer"`
	PointValue    int    `json:"pointValue"`
	SubmittedBy   string `json:"submittedBy,omitempty"`
}

// LockAnswers locks every submission for the current question.
type LockAnswers struct {
	ActionBase
}

// RevealAnswers grades locked submissions and applies their scores.
type RevealAnswers struct {
	ActionBase
}

// AddPlayer registers a player (idempotent; re-adding updates the name).
type AddPlayer struct {
	ActionBase
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// RemovePlayer drops a player's registration and scores.
type RemovePlayer struct {
	ActionBase
	PlayerID string `json:"playerId"`
}

// FormTeam registers a team and assigns the listed players to it.
type FormTeam struct {
	ActionBase
	TeamID    string   `json:"teamId"`
	Name      string   `json:"name"`
	PlayerIDs []string `json:"playerIds,omitempty"`
}
