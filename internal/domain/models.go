package domain

import "time"

// Phase is the top-level game phase. Paused is deliberately not a phase; it is
// an orthogonal flag on GameState that freezes timers without losing the phase.
type Phase string

const (
	PhasePreGame          Phase = "pre-game"
	PhaseRoundIntro       Phase = "round-intro"
	PhaseAnswerSubmission Phase = "answer-submission"
	PhaseReviewing        Phase = "reviewing"
	PhaseRoundComplete    Phase = "round-complete"
	PhaseGameComplete     Phase = "game-complete"
)

// Valid reports whether p is a member of the recognized phase set.
func (p Phase) Valid() bool {
	switch p {
	case PhasePreGame, PhaseRoundIntro, PhaseAnswerSubmission,
		PhaseReviewing, PhaseRoundComplete, PhaseGameComplete:
		return true
	}
	return false
}

type RoundType string

const (
	RoundStandard  RoundType = "standard"
	RoundPicture   RoundType = "picture"
	RoundWager     RoundType = "wager"
	RoundLightning RoundType = "lightning"
)

type RoundStatus string

const (
	RoundNotStarted RoundStatus = "not-started"
	RoundActive     RoundStatus = "active"
	RoundCompleted  RoundStatus = "completed"
)

type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionImage          QuestionType = "image"
	QuestionAudio          QuestionType = "audio"
	QuestionVideo          QuestionType = "video"
)

// Question is immutable configuration loaded at game creation.
type Question struct {
	ID              string       `json:"id"`
	Prompt          string       `json:"prompt"`
	Type            QuestionType `json:"type"`
	Category        string       `json:"category,omitempty"`
	Difficulty      string       `json:"difficulty,omitempty"`
	CorrectAnswer   string       `json:"correctAnswer"`
	AcceptedAnswers []string     `json:"acceptedAnswers,omitempty"`
	MediaURL        string       `json:"mediaUrl,omitempty"`
	Points          int          `json:"points"` // fixed award; zero means the claimed point value scores
	TimeLimitSec    int          `json:"timeLimitSec,omitempty"`
}

// Round holds the ordered questions and the point values participants may
// claim exactly once each while the round is active.
type Round struct {
	Number      int         `json:"number"`
	Type        RoundType   `json:"type"`
	Questions   []Question  `json:"questions"`
	PointValues []int       `json:"pointValues"`
	Status      RoundStatus `json:"status"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// QuestionPack is the game content bundle: every round with its questions.
type QuestionPack struct {
	ID     string  `json:"id"`
	Title  string  `json:"title,omitempty"`
	Rounds []Round `json:"rounds"`
}

// PlayerScore is the per-player aggregate maintained by the score manager.
type PlayerScore struct {
	PlayerID         string      `json:"playerId"`
	Name             string      `json:"name"`
	TotalScore       int         `json:"totalScore"`
	RoundScores      map[int]int `json:"roundScores"`
	PointValuesUsed  map[int]int `json:"pointValuesUsed"` // value -> times claimed
	CorrectAnswers   int         `json:"correctAnswers"`
	IncorrectAnswers int         `json:"incorrectAnswers"`
	Accuracy         float64     `json:"accuracy"` // percentage, two decimals
	Rank             int         `json:"rank"`
	LastUpdated      time.Time   `json:"lastUpdated"`
}

// TeamScore additionally tracks each member's contribution to the total.
type TeamScore struct {
	TeamID           string         `json:"teamId"`
	Name             string         `json:"name"`
	TotalScore       int            `json:"totalScore"`
	RoundScores      map[int]int    `json:"roundScores"`
	CorrectAnswers   int            `json:"correctAnswers"`
	IncorrectAnswers int            `json:"incorrectAnswers"`
	Accuracy         float64        `json:"accuracy"`
	Rank             int            `json:"rank"`
	Members          map[string]int `json:"members"` // player id -> contributed points
	LastUpdated      time.Time      `json:"lastUpdated"`
}

// ScoreUpdate is a partial-field overwrite used for host corrections.
// Nil fields keep their current value.
type ScoreUpdate struct {
	Name             *string
	TotalScore       *int
	CorrectAnswers   *int
	IncorrectAnswers *int
}

// Submission records one answer for one (participant, question) pairing.
// Correct stays nil until the answer is graded at reveal.
type Submission struct {
	ID            string     `json:"id"`
	ParticipantID string     `json:"participantId"`
	QuestionID    string     `json:"questionId"`
	RoundNumber   int        `json:"roundNumber"`
	Answer        string     `json:"answer"`
	PointValue    int        `json:"pointValue"`
	Correct       *bool      `json:"correct,omitempty"`
	Locked        bool       `json:"locked"`
	SubmittedBy   string     `json:"submittedBy,omitempty"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type EntryType string

const (
	EntryPlayer EntryType = "player"
	EntryTeam   EntryType = "team"
)

// LeaderboardEntry carries a rank scoped to its own type: players and teams
// are ranked independently even though they share one ordered list.
type LeaderboardEntry struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Score          int       `json:"score"`
	Rank           int       `json:"rank"`
	Type           EntryType `json:"type"`
	Accuracy       float64   `json:"accuracy"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalAnswers   int       `json:"totalAnswers"`
}

// Leaderboard captures the ordered scoreboard for a game.
type Leaderboard struct {
	GameID    string             `json:"gameId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RoundStatistics summarizes participation for a single round.
type RoundStatistics struct {
	RoundNumber  int     `json:"roundNumber"`
	Participants int     `json:"participants"`
	Average      float64 `json:"average"`
	Highest      int     `json:"highest"`
	Lowest       int     `json:"lowest"`
}

// ValidationResult lets callers render inline errors instead of catching.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// SubmitResult is the outcome of a submission mutation.
type SubmitResult struct {
	Success      bool     `json:"success"`
	SubmissionID string   `json:"submissionId,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// GameState is the snapshot view of a running game. It is produced by the
// state manager; external code never mutates it in place.
type GameState struct {
	GameID          string     `json:"gameId"`
	RoomID          string     `json:"roomId"`
	HostID          string     `json:"hostId"`
	Phase           Phase      `json:"phase"`
	CurrentRound    int        `json:"currentRound"` // 0 before the first round starts
	RoundCount      int        `json:"roundCount"`
	CurrentQuestion *Question  `json:"currentQuestion,omitempty"`
	QuestionIndex   int        `json:"questionIndex"`
	IsActive        bool       `json:"isActive"`
	IsPaused        bool       `json:"isPaused"`
	IsComplete      bool       `json:"isComplete"`
	Version         int        `json:"version"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
