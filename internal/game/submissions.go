package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"tony-trivia-service/internal/domain"
)

// SubmissionManager records and gates answer submissions per question. It
// enforces at-most-one submission per (participant, point value) pairing
// within each round, layered on the round manager's own tracking; rounds
// reusing the same point-value set stay independent.
type SubmissionManager struct {
	mu          sync.RWMutex
	gameID      string
	rounds      *RoundManager
	bus         *eventBus
	now         func() time.Time
	newID       func() string
	submissions map[string]*domain.Submission
	byValue     map[claimKey]map[int]string // (participant, round) -> point value -> submission id
}

// claimKey scopes point-value claims to one participant in one round.
type claimKey struct {
	participantID string
	round         int
}

// NewSubmissionManager panics on a missing round manager: that is a wiring
// bug in the caller, not a recoverable condition.
func NewSubmissionManager(gameID string, rounds *RoundManager) *SubmissionManager {
	return newSubmissionManager(gameID, rounds, newEventBus(), time.Now)
}

func newSubmissionManager(gameID string, rounds *RoundManager, bus *eventBus, now func() time.Time) *SubmissionManager {
	if rounds == nil {
		panic("submission manager requires a round manager")
	}
	return &SubmissionManager{
		gameID:      gameID,
		rounds:      rounds,
		bus:         bus,
		now:         now,
		newID:       uuid.NewString,
		submissions: make(map[string]*domain.Submission),
		byValue:     make(map[claimKey]map[int]string),
	}
}

// SubmitAnswer validates all fields, claims the point value for the current
// round, and records the submission. Failures come back as error strings so
// the caller can surface them inline.
func (m *SubmissionManager) SubmitAnswer(questionID, participantID, answer string, pointValue int) domain.SubmitResult {
	return m.submit(questionID, participantID, answer, "", pointValue)
}

// SubmitAnswerBy additionally records who on the team typed the answer.
func (m *SubmissionManager) SubmitAnswerBy(questionID, participantID, answer, submittedBy string, pointValue int) domain.SubmitResult {
	return m.submit(questionID, participantID, answer, submittedBy, pointValue)
}

func (m *SubmissionManager) submit(questionID, participantID, answer, submittedBy string, pointValue int) domain.SubmitResult {
	var errs []string
	if questionID == "" {
		errs = append(errs, "question id is required")
	}
	if participantID == "" {
		errs = append(errs, "participant id is required")
	}
	if answer == "" {
		errs = append(errs, "answer text is required")
	}
	if pointValue <= 0 {
		errs = append(errs, "point value must be positive")
	}
	if len(errs) > 0 {
		return domain.SubmitResult{Success: false, Errors: errs}
	}

	m.mu.Lock()

	round := m.rounds.CurrentRound()
	key := claimKey{participantID: participantID, round: round}

	// Cross-question exclusivity: one submission per point value per
	// participant within the round, regardless of which question claimed it.
	if id, ok := m.byValue[key][pointValue]; ok {
		m.mu.Unlock()
		return domain.SubmitResult{Success: false, Errors: []string{
			fmt.Sprintf("point value %d already used by submission %s", pointValue, id),
		}}
	}

	if !m.rounds.UsePointValue(participantID, pointValue, round) {
		m.mu.Unlock()
		return domain.SubmitResult{Success: false, Errors: []string{
			fmt.Sprintf("point value %d is not available in round %d", pointValue, round),
		}}
	}

	now := m.now()
	sub := &domain.Submission{
		ID:            m.newID(),
		ParticipantID: participantID,
		QuestionID:    questionID,
		RoundNumber:   round,
		Answer:        answer,
		PointValue:    pointValue,
		SubmittedBy:   submittedBy,
		SubmittedAt:   now,
	}
	m.submissions[sub.ID] = sub
	claims, ok := m.byValue[key]
	if !ok {
		claims = make(map[int]string)
		m.byValue[key] = claims
	}
	claims[pointValue] = sub.ID
	m.mu.Unlock()

	// Published outside the lock so handlers may query the manager.
	m.bus.publish(domain.GameEvent{
		ID:            m.newID(),
		Type:          domain.EventSubmissionCreated,
		GameID:        m.gameID,
		ParticipantID: participantID,
		QuestionID:    questionID,
		RoundNumber:   round,
		PointValue:    pointValue,
		Timestamp:     now,
	})
	return domain.SubmitResult{Success: true, SubmissionID: sub.ID}
}

// UpdateSubmission replaces the answer text; it fails if the submission is
// locked or unknown.
func (m *SubmissionManager) UpdateSubmission(submissionID, newAnswer string) domain.SubmitResult {
	if newAnswer == "" {
		return domain.SubmitResult{Success: false, Errors: []string{"answer text is required"}}
	}
	m.mu.Lock()
	sub, ok := m.submissions[submissionID]
	if !ok {
		m.mu.Unlock()
		return domain.SubmitResult{Success: false, Errors: []string{fmt.Sprintf("submission %s not found", submissionID)}}
	}
	if sub.Locked {
		m.mu.Unlock()
		return domain.SubmitResult{Success: false, Errors: []string{fmt.Sprintf("submission %s is locked", submissionID)}}
	}
	now := m.now()
	sub.Answer = newAnswer
	sub.UpdatedAt = &now
	participantID, questionID := sub.ParticipantID, sub.QuestionID
	m.mu.Unlock()

	m.bus.publish(domain.GameEvent{
		ID:            m.newID(),
		Type:          domain.EventSubmissionUpdated,
		GameID:        m.gameID,
		ParticipantID: participantID,
		QuestionID:    questionID,
		Timestamp:     now,
	})
	return domain.SubmitResult{Success: true, SubmissionID: submissionID}
}

// LockSubmission prevents further edits; typically triggered by time-limit
// expiry or host action. Locking an already-locked submission is a no-op.
func (m *SubmissionManager) LockSubmission(submissionID string) bool {
	m.mu.Lock()
	evt, ok := m.lockLocked(submissionID)
	m.mu.Unlock()
	if ok {
		m.bus.publish(evt)
	}
	return ok
}

// LockAll locks every submission for the given question and returns how many
// transitioned. An empty question id locks everything.
func (m *SubmissionManager) LockAll(questionID string) int {
	m.mu.Lock()
	var events []domain.GameEvent
	for id, sub := range m.submissions {
		if questionID != "" && sub.QuestionID != questionID {
			continue
		}
		if evt, ok := m.lockLocked(id); ok {
			events = append(events, evt)
		}
	}
	m.mu.Unlock()
	for _, evt := range events {
		m.bus.publish(evt)
	}
	return len(events)
}

func (m *SubmissionManager) lockLocked(submissionID string) (domain.GameEvent, bool) {
	sub, ok := m.submissions[submissionID]
	if !ok || sub.Locked {
		return domain.GameEvent{}, false
	}
	sub.Locked = true
	return domain.GameEvent{
		ID:            m.newID(),
		Type:          domain.EventSubmissionLocked,
		GameID:        m.gameID,
		ParticipantID: sub.ParticipantID,
		QuestionID:    sub.QuestionID,
		Timestamp:     m.now(),
	}, true
}

// UnlockSubmission re-opens a submission for edits.
func (m *SubmissionManager) UnlockSubmission(submissionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[submissionID]
	if !ok || !sub.Locked {
		return false
	}
	sub.Locked = false
	return true
}

// IsSubmissionLocked reports a submission's lock flag.
func (m *SubmissionManager) IsSubmissionLocked(submissionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[submissionID]
	return ok && sub.Locked
}

// SetCorrectness grades a submission; used at reveal time.
func (m *SubmissionManager) SetCorrectness(submissionID string, correct bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.submissions[submissionID]
	if !ok {
		return false
	}
	c := correct
	sub.Correct = &c
	return true
}

// Submission returns a copy of the submission with the given id.
func (m *SubmissionManager) Submission(submissionID string) (domain.Submission, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[submissionID]
	if !ok {
		return domain.Submission{}, false
	}
	return *sub, true
}

// GetSubmissionCount returns how many submissions have been recorded.
func (m *SubmissionManager) GetSubmissionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.submissions)
}

// GetLockedSubmissionCount returns how many submissions are locked.
func (m *SubmissionManager) GetLockedSubmissionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sub := range m.submissions {
		if sub.Locked {
			n++
		}
	}
	return n
}

// GetAllSubmissions returns copies of every submission, ordered by submission
// time, earliest first.
func (m *SubmissionManager) GetAllSubmissions() []domain.Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Submission, 0, len(m.submissions))
	for _, sub := range m.submissions {
		out = append(out, *sub)
	}
	sortSubmissions(out)
	return out
}

// SubmissionsForQuestion returns copies of the submissions for one question.
func (m *SubmissionManager) SubmissionsForQuestion(questionID string) []domain.Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Submission
	for _, sub := range m.submissions {
		if sub.QuestionID == questionID {
			out = append(out, *sub)
		}
	}
	sortSubmissions(out)
	return out
}

// Subscribe registers a handler for submission events.
func (m *SubmissionManager) Subscribe(h EventHandler) func() {
	return m.bus.subscribe(h)
}

func sortSubmissions(subs []domain.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
}
