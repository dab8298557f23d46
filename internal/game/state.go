package game

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"tony-trivia-service/internal/domain"
)

// Config tunes per-game behavior.
type Config struct {
	// QuestionTimeLimit applies when a question declares no limit of its own.
	QuestionTimeLimit time.Duration
	// AutoAdvance schedules the first round automatically after start-game.
	AutoAdvance bool
	// AutoAdvanceDelay is how long after start-game the first round begins.
	AutoAdvanceDelay time.Duration
}

// DefaultConfig matches the hosted-game defaults.
func DefaultConfig() Config {
	return Config{
		QuestionTimeLimit: 30 * time.Second,
		AutoAdvanceDelay:  3 * time.Second,
	}
}

// StateManager is the top-level phase state machine for one game. All
// mutations go through Dispatch; there is no direct external mutation. Each
// manager instance is privately owned by whoever constructed it and must be
// destroyed on teardown.
type StateManager struct {
	mu     sync.Mutex
	state  domain.GameState
	rounds *RoundManager
	subs   *SubmissionManager
	scores *ScoreManager
	bus    *eventBus
	timers map[string]*countdown
	now    func() time.Time
	newID  func() string
	cfg    Config

	destroyed bool

	logMu  sync.Mutex
	events []domain.GameEvent

	stateMu    sync.Mutex
	stateSubs  map[int]func(domain.GameState)
	stateOrder []int
	nextState  int
}

// NewStateManager builds the manager tree for one game from its question
// pack. Rounds and questions are immutable after this point.
func NewStateManager(gameID, roomID, hostID string, pack domain.QuestionPack, cfg Config) *StateManager {
	return newStateManagerWithClock(gameID, roomID, hostID, pack, cfg, time.Now)
}

// newStateManagerWithClock allows deterministic timestamps in tests.
func newStateManagerWithClock(gameID, roomID, hostID string, pack domain.QuestionPack, cfg Config, now func() time.Time) *StateManager {
	if cfg.QuestionTimeLimit <= 0 {
		cfg.QuestionTimeLimit = DefaultConfig().QuestionTimeLimit
	}
	if cfg.AutoAdvanceDelay <= 0 {
		cfg.AutoAdvanceDelay = DefaultConfig().AutoAdvanceDelay
	}
	bus := newEventBus()
	rounds := newRoundManagerWithClock(pack.Rounds, now)
	m := &StateManager{
		state: domain.GameState{
			GameID:        gameID,
			RoomID:        roomID,
			HostID:        hostID,
			Phase:         domain.PhasePreGame,
			RoundCount:    rounds.RoundCount(),
			QuestionIndex: -1,
			UpdatedAt:     now(),
		},
		rounds:    rounds,
		subs:      newSubmissionManager(gameID, rounds, bus, now),
		scores:    newScoreManager(gameID, bus, now),
		bus:       bus,
		timers:    make(map[string]*countdown),
		now:       now,
		newID:     uuid.NewString,
		cfg:       cfg,
		stateSubs: make(map[int]func(domain.GameState)),
	}
	// The event log records every domain transition, including the
	// submission and score events emitted by the child managers.
	bus.subscribe(m.appendToLog)
	return m
}

// GameID returns the id this manager validates actions against.
func (m *StateManager) GameID() string { return m.state.GameID }

// Rounds exposes the round manager for queries and direct tooling.
func (m *StateManager) Rounds() *RoundManager { return m.rounds }

// Submissions exposes the submission manager.
func (m *StateManager) Submissions() *SubmissionManager { return m.subs }

// Scores exposes the score manager.
func (m *StateManager) Scores() *ScoreManager { return m.scores }

// Snapshot returns a copy of the current game state.
func (m *StateManager) Snapshot() domain.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *StateManager) snapshotLocked() domain.GameState {
	s := m.state
	if m.state.CurrentQuestion != nil {
		q := *m.state.CurrentQuestion
		s.CurrentQuestion = &q
	}
	return s
}

// EventLog returns a copy of the append-only event log.
func (m *StateManager) EventLog() []domain.GameEvent {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	out := make([]domain.GameEvent, len(m.events))
	copy(out, m.events)
	return out
}

// SubscribeEvents registers a handler for domain events. Handlers run
// synchronously in registration order; a panicking handler is logged and the
// rest still run.
func (m *StateManager) SubscribeEvents(h EventHandler) func() {
	return m.bus.subscribe(h)
}

// SubscribeState registers a handler for state snapshots emitted after every
// successful transition. The returned func unsubscribes.
func (m *StateManager) SubscribeState(h func(domain.GameState)) func() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	id := m.nextState
	m.nextState++
	m.stateSubs[id] = h
	m.stateOrder = append(m.stateOrder, id)
	return func() {
		m.stateMu.Lock()
		defer m.stateMu.Unlock()
		delete(m.stateSubs, id)
		for i, v := range m.stateOrder {
			if v == id {
				m.stateOrder = append(m.stateOrder[:i], m.stateOrder[i+1:]...)
				break
			}
		}
	}
}

// TimerRemaining reports the remaining time on a question timer.
func (m *StateManager) TimerRemaining(questionID string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.timers[questionID]
	if !ok {
		return 0, false
	}
	return c.remainingAt(m.now()), true
}

// Dispatch validates and executes one action. Protocol errors (wrong game id,
// missing timestamp, unknown action kind) indicate a caller bug and come back
// as sentinel errors. Precondition violations are appended to the event log
// as action-failed and returned as descriptive errors; nothing is swallowed.
func (m *StateManager) Dispatch(ctx context.Context, action domain.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if action == nil {
		return domain.ErrUnknownAction
	}
	base := action.Base()
	if base.GameID != m.state.GameID {
		return fmt.Errorf("%w: got %q, want %q", domain.ErrGameIDMismatch, base.GameID, m.state.GameID)
	}
	if base.Timestamp.IsZero() {
		return domain.ErrMissingTimestamp
	}

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return domain.ErrManagerDestroyed
	}

	events, post, err := m.applyLocked(action)
	if err != nil {
		m.mu.Unlock()
		m.publishFailure(err)
		return err
	}
	m.mu.Unlock()

	for _, evt := range events {
		m.bus.publish(evt)
	}
	if post != nil {
		if err := post(); err != nil {
			m.publishFailure(err)
			return err
		}
	}

	// The version advances only once the whole action has taken effect;
	// a rejected follow-up must not move the last-writer-wins clock.
	m.mu.Lock()
	m.state.Version++
	m.state.UpdatedAt = m.now()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notifyState(snapshot)
	return nil
}

func (m *StateManager) publishFailure(err error) {
	m.bus.publish(domain.GameEvent{
		ID:        m.newID(),
		Type:      domain.EventActionFailed,
		GameID:    m.state.GameID,
		Detail:    err.Error(),
		Timestamp: m.now(),
	})
}

// applyLocked executes the action body. It returns the domain events to
// publish and an optional follow-up to run outside the state lock; anything
// that feeds the child managers (submission, grading) runs there so their
// event handlers never observe the state lock held.
func (m *StateManager) applyLocked(action domain.Action) ([]domain.GameEvent, func() error, error) {
	switch a := action.(type) {
	case domain.StartGame:
		return m.startGameLocked()
	case domain.PauseGame:
		return m.pauseLocked()
	case domain.ResumeGame:
		return m.resumeLocked()
	case domain.EndGame:
		return m.endGameLocked()
	case domain.StartRound:
		return m.startRoundLocked(a.Number)
	case domain.EndRound:
		return m.endRoundLocked()
	case domain.PresentQuestion:
		return m.presentQuestionLocked(a.Index)
	case domain.AdvanceQuestion:
		return m.presentQuestionLocked(m.state.QuestionIndex + 1)
	case domain.SkipQuestion:
		return m.skipQuestionLocked()
	case domain.SubmitAnswer:
		return m.submitAnswerLocked(a)
	case domain.LockAnswers:
		return m.lockAnswersLocked()
	case domain.RevealAnswers:
		return m.revealAnswersLocked()
	case domain.AddPlayer:
		return m.addPlayerLocked(a)
	case domain.RemovePlayer:
		return m.removePlayerLocked(a)
	case domain.FormTeam:
		return m.formTeamLocked(a)
	default:
		return nil, nil, fmt.Errorf("%w: %T", domain.ErrUnknownAction, action)
	}
}

func (m *StateManager) startGameLocked() ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhasePreGame {
		return nil, nil, fmt.Errorf("cannot start game from phase %s", m.state.Phase)
	}
	if m.scores.ParticipantCount() == 0 {
		return nil, nil, fmt.Errorf("cannot start game without players or teams")
	}
	started := m.now()
	m.state.IsActive = true
	m.state.Phase = domain.PhaseRoundIntro
	m.state.StartedAt = &started

	var post func() error
	if m.cfg.AutoAdvance {
		gameID := m.state.GameID
		delay := m.cfg.AutoAdvanceDelay
		post = func() error {
			time.AfterFunc(delay, func() {
				_ = m.Dispatch(context.Background(), domain.StartRound{
					ActionBase: domain.ActionBase{GameID: gameID, Timestamp: time.Now()},
					Number:     1,
				})
			})
			return nil
		}
	}
	return []domain.GameEvent{m.eventLocked(domain.EventGameStarted, "")}, post, nil
}

func (m *StateManager) pauseLocked() ([]domain.GameEvent, func() error, error) {
	if !m.state.IsActive || m.state.IsComplete {
		return nil, nil, fmt.Errorf("cannot pause: game is not active")
	}
	if m.state.IsPaused {
		return nil, nil, fmt.Errorf("cannot pause: game is already paused")
	}
	now := m.now()
	for _, c := range m.timers {
		c.pause(now)
	}
	m.state.IsPaused = true
	return []domain.GameEvent{m.eventLocked(domain.EventGamePaused, "")}, nil, nil
}

func (m *StateManager) resumeLocked() ([]domain.GameEvent, func() error, error) {
	if !m.state.IsPaused {
		return nil, nil, fmt.Errorf("cannot resume: game is not paused")
	}
	now := m.now()
	for id, c := range m.timers {
		questionID := id
		c.resume(now, func() { m.onTimerExpired(questionID) })
	}
	m.state.IsPaused = false
	return []domain.GameEvent{m.eventLocked(domain.EventGameResumed, "")}, nil, nil
}

func (m *StateManager) endGameLocked() ([]domain.GameEvent, func() error, error) {
	m.clearTimersLocked()
	ended := m.now()
	m.state.Phase = domain.PhaseGameComplete
	m.state.IsComplete = true
	m.state.IsActive = false
	m.state.IsPaused = false
	m.state.EndedAt = &ended
	m.state.CurrentQuestion = nil
	return []domain.GameEvent{m.eventLocked(domain.EventGameEnded, "")}, nil, nil
}

func (m *StateManager) startRoundLocked(n int) ([]domain.GameEvent, func() error, error) {
	if !m.state.IsActive || m.state.IsComplete {
		return nil, nil, fmt.Errorf("cannot start round: game is not active")
	}
	if m.state.IsPaused {
		return nil, nil, domain.ErrGamePaused
	}
	if m.state.Phase != domain.PhaseRoundIntro && m.state.Phase != domain.PhaseRoundComplete {
		return nil, nil, fmt.Errorf("cannot start round from phase %s", m.state.Phase)
	}
	if n == 0 {
		n = m.rounds.CurrentRound() + 1
	}
	if !m.rounds.StartRound(n) {
		return nil, nil, fmt.Errorf("round %d cannot be started", n)
	}
	m.state.CurrentRound = n
	m.state.Phase = domain.PhaseAnswerSubmission
	m.state.QuestionIndex = -1
	m.state.CurrentQuestion = nil
	evt := m.eventLocked(domain.EventRoundStarted, "")
	evt.RoundNumber = n
	return []domain.GameEvent{evt}, nil, nil
}

func (m *StateManager) endRoundLocked() ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhaseAnswerSubmission && m.state.Phase != domain.PhaseReviewing {
		return nil, nil, fmt.Errorf("cannot end round from phase %s", m.state.Phase)
	}
	n := m.rounds.CurrentRound()
	if !m.rounds.CompleteRound(n) {
		return nil, nil, fmt.Errorf("round %d is not active", n)
	}
	m.clearTimersLocked()
	m.state.CurrentQuestion = nil
	m.state.QuestionIndex = -1

	evt := m.eventLocked(domain.EventRoundCompleted, "")
	evt.RoundNumber = n
	events := []domain.GameEvent{evt}

	if n >= m.rounds.RoundCount() {
		ended := m.now()
		m.state.Phase = domain.PhaseGameComplete
		m.state.IsComplete = true
		m.state.IsActive = false
		m.state.EndedAt = &ended
		events = append(events, m.eventLocked(domain.EventGameEnded, ""))
	} else {
		m.state.Phase = domain.PhaseRoundComplete
	}
	return events, nil, nil
}

func (m *StateManager) presentQuestionLocked(index int) ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhaseAnswerSubmission {
		return nil, nil, fmt.Errorf("cannot present question from phase %s", m.state.Phase)
	}
	if m.state.IsPaused {
		return nil, nil, domain.ErrGamePaused
	}
	round, ok := m.rounds.Round(m.rounds.CurrentRound())
	if !ok {
		return nil, nil, fmt.Errorf("no active round")
	}
	if index < 0 || index >= len(round.Questions) {
		return nil, nil, fmt.Errorf("question index %d out of range for round %d", index, round.Number)
	}

	q := round.Questions[index]
	m.state.CurrentQuestion = &q
	m.state.QuestionIndex = index

	m.clearTimersLocked()
	limit := m.cfg.QuestionTimeLimit
	if q.TimeLimitSec > 0 {
		limit = time.Duration(q.TimeLimitSec) * time.Second
	}
	questionID := q.ID
	m.timers[questionID] = startCountdown(questionID, limit, m.now(), func() {
		m.onTimerExpired(questionID)
	})

	evt := m.eventLocked(domain.EventQuestionPresented, "")
	evt.QuestionID = q.ID
	evt.RoundNumber = round.Number
	return []domain.GameEvent{evt}, nil, nil
}

func (m *StateManager) skipQuestionLocked() ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhaseAnswerSubmission {
		return nil, nil, fmt.Errorf("cannot skip question from phase %s", m.state.Phase)
	}
	if m.state.CurrentQuestion == nil {
		return nil, nil, fmt.Errorf("no question is being presented")
	}
	skipped := m.eventLocked(domain.EventQuestionSkipped, "")
	skipped.QuestionID = m.state.CurrentQuestion.ID
	m.clearTimersLocked()

	round, _ := m.rounds.Round(m.rounds.CurrentRound())
	next := m.state.QuestionIndex + 1
	if next < len(round.Questions) {
		events, post, err := m.presentQuestionLocked(next)
		if err != nil {
			return nil, nil, err
		}
		return append([]domain.GameEvent{skipped}, events...), post, nil
	}
	m.state.CurrentQuestion = nil
	m.state.QuestionIndex = -1
	return []domain.GameEvent{skipped}, nil, nil
}

func (m *StateManager) submitAnswerLocked(a domain.SubmitAnswer) ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhaseAnswerSubmission {
		return nil, nil, fmt.Errorf("cannot submit answers from phase %s", m.state.Phase)
	}
	if m.state.IsPaused {
		return nil, nil, domain.ErrGamePaused
	}
	if m.state.CurrentQuestion == nil {
		return nil, nil, fmt.Errorf("no question is being presented")
	}
	if a.QuestionID != m.state.CurrentQuestion.ID {
		return nil, nil, fmt.Errorf("question %s is not the current question", a.QuestionID)
	}
	// The submission manager validates and publishes SUBMISSION_CREATED
	// itself; run it outside the state lock.
	post := func() error {
		res := m.subs.SubmitAnswerBy(a.QuestionID, a.ParticipantID, a.Answer, a.SubmittedBy, a.PointValue)
		if !res.Success {
			return fmt.Errorf("submission rejected: %s", strings.Join(res.Errors, "; "))
		}
		return nil
	}
	return nil, post, nil
}

func (m *StateManager) lockAnswersLocked() ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhaseAnswerSubmission {
		return nil, nil, fmt.Errorf("cannot lock answers from phase %s", m.state.Phase)
	}
	questionID := ""
	if m.state.CurrentQuestion != nil {
		questionID = m.state.CurrentQuestion.ID
	}
	m.clearTimersLocked()
	m.state.Phase = domain.PhaseReviewing

	evt := m.eventLocked(domain.EventAnswersLocked, "")
	evt.QuestionID = questionID
	post := func() error {
		m.subs.LockAll(questionID)
		return nil
	}
	return []domain.GameEvent{evt}, post, nil
}

func (m *StateManager) revealAnswersLocked() ([]domain.GameEvent, func() error, error) {
	if m.state.Phase != domain.PhaseReviewing {
		return nil, nil, fmt.Errorf("cannot reveal answers from phase %s", m.state.Phase)
	}
	if m.state.CurrentQuestion == nil {
		return nil, nil, fmt.Errorf("no question is being reviewed")
	}
	question := *m.state.CurrentQuestion

	evt := m.eventLocked(domain.EventAnswersRevealed, "")
	evt.QuestionID = question.ID

	// Grading feeds the score manager, which emits its own events; run it
	// outside the state lock.
	post := func() error {
		for _, sub := range m.subs.SubmissionsForQuestion(question.ID) {
			if !sub.Locked {
				continue
			}
			correct := answerMatches(question, sub.Answer)
			m.subs.SetCorrectness(sub.ID, correct)
			if err := m.scores.CalculateScore(sub.ParticipantID, question.ID, correct, questionPoints(question, sub), sub.RoundNumber); err != nil {
				m.publishFailure(fmt.Errorf("grade %s: %w", sub.ID, err))
			}
		}
		return nil
	}
	return []domain.GameEvent{evt}, post, nil
}

func (m *StateManager) addPlayerLocked(a domain.AddPlayer) ([]domain.GameEvent, func() error, error) {
	if m.state.IsComplete {
		return nil, nil, fmt.Errorf("cannot add players to a completed game")
	}
	if a.PlayerID == "" || a.Name == "" {
		return nil, nil, fmt.Errorf("player id and name are required")
	}
	m.scores.RegisterPlayer(a.PlayerID, a.Name)
	evt := m.eventLocked(domain.EventPlayerAdded, a.PlayerID)
	return []domain.GameEvent{evt}, nil, nil
}

func (m *StateManager) removePlayerLocked(a domain.RemovePlayer) ([]domain.GameEvent, func() error, error) {
	if !m.scores.RemovePlayer(a.PlayerID) {
		return nil, nil, fmt.Errorf("player %s is not registered", a.PlayerID)
	}
	evt := m.eventLocked(domain.EventPlayerRemoved, a.PlayerID)
	return []domain.GameEvent{evt}, nil, nil
}

func (m *StateManager) formTeamLocked(a domain.FormTeam) ([]domain.GameEvent, func() error, error) {
	if m.state.IsComplete {
		return nil, nil, fmt.Errorf("cannot form teams in a completed game")
	}
	if a.TeamID == "" || a.Name == "" {
		return nil, nil, fmt.Errorf("team id and name are required")
	}
	m.scores.RegisterTeam(a.TeamID, a.Name)
	for _, pid := range a.PlayerIDs {
		if err := m.scores.AddPlayerToTeam(pid, a.TeamID, pid); err != nil {
			return nil, nil, err
		}
	}
	evt := m.eventLocked(domain.EventTeamFormed, a.TeamID)
	return []domain.GameEvent{evt}, nil, nil
}

// onTimerExpired fires from the countdown's scheduled callback: the question
// closes, submissions lock, and the phase moves to reviewing.
func (m *StateManager) onTimerExpired(questionID string) {
	m.mu.Lock()
	if m.destroyed || m.state.IsPaused {
		m.mu.Unlock()
		return
	}
	c, ok := m.timers[questionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	c.stop()
	delete(m.timers, questionID)

	events := []domain.GameEvent{}
	expired := m.eventLocked(domain.EventTimerExpired, "")
	expired.QuestionID = questionID
	events = append(events, expired)

	if m.state.Phase == domain.PhaseAnswerSubmission &&
		m.state.CurrentQuestion != nil && m.state.CurrentQuestion.ID == questionID {
		m.state.Phase = domain.PhaseReviewing
		locked := m.eventLocked(domain.EventAnswersLocked, "")
		locked.QuestionID = questionID
		events = append(events, locked)
	}
	m.state.Version++
	m.state.UpdatedAt = m.now()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.subs.LockAll(questionID)
	for _, evt := range events {
		m.bus.publish(evt)
	}
	m.notifyState(snapshot)
}

// ApplyRemoteState merges a remote copy of the game state. Conflicts resolve
// by version-stamped last-writer-wins: stale versions are ignored rather than
// overwriting in-flight local updates.
func (m *StateManager) ApplyRemoteState(remote domain.GameState) bool {
	if remote.GameID != m.state.GameID {
		return false
	}
	m.mu.Lock()
	if m.destroyed || remote.Version <= m.state.Version {
		m.mu.Unlock()
		return false
	}
	m.state.Phase = remote.Phase
	m.state.CurrentRound = remote.CurrentRound
	m.state.QuestionIndex = remote.QuestionIndex
	m.state.CurrentQuestion = remote.CurrentQuestion
	m.state.IsActive = remote.IsActive
	m.state.IsPaused = remote.IsPaused
	m.state.IsComplete = remote.IsComplete
	m.state.Version = remote.Version
	m.state.UpdatedAt = m.now()
	snapshot := m.snapshotLocked()
	m.mu.Unlock()
	m.notifyState(snapshot)
	return true
}

// managerSnapshot bundles the per-manager exports for persistence/recovery.
type managerSnapshot struct {
	State  domain.GameState   `json:"state"`
	Rounds string             `json:"rounds"`
	Scores string             `json:"scores"`
	Events []domain.GameEvent `json:"events"`
}

// Export serializes the whole manager tree as an opaque snapshot string.
func (m *StateManager) Export() (string, error) {
	rounds, err := m.rounds.ExportState()
	if err != nil {
		return "", err
	}
	scores, err := m.scores.ExportScores()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	state := m.snapshotLocked()
	m.mu.Unlock()
	data, err := json.Marshal(managerSnapshot{
		State:  state,
		Rounds: rounds,
		Scores: scores,
		Events: m.EventLog(),
	})
	if err != nil {
		return "", fmt.Errorf("export game: %w", err)
	}
	return string(data), nil
}

// Import restores a snapshot produced by Export. The snapshot must belong to
// the same game id.
func (m *StateManager) Import(serialized string) error {
	var snap managerSnapshot
	if err := json.Unmarshal([]byte(serialized), &snap); err != nil {
		return fmt.Errorf("import game: %w", err)
	}
	if snap.State.GameID != m.state.GameID {
		return fmt.Errorf("import game: snapshot belongs to game %s", snap.State.GameID)
	}
	if err := m.rounds.ImportState(snap.Rounds); err != nil {
		return err
	}
	if err := m.scores.ImportScores(snap.Scores); err != nil {
		return err
	}
	m.mu.Lock()
	m.clearTimersLocked()
	m.state = snap.State
	m.mu.Unlock()
	m.logMu.Lock()
	m.events = snap.Events
	m.logMu.Unlock()
	return nil
}

// Destroy clears all pending timers and detaches all listeners. Further
// dispatches fail with ErrManagerDestroyed.
func (m *StateManager) Destroy() {
	m.mu.Lock()
	m.destroyed = true
	m.clearTimersLocked()
	m.mu.Unlock()

	m.bus.reset()
	m.stateMu.Lock()
	m.stateSubs = make(map[int]func(domain.GameState))
	m.stateOrder = nil
	m.stateMu.Unlock()
}

func (m *StateManager) clearTimersLocked() {
	for id, c := range m.timers {
		c.stop()
		delete(m.timers, id)
	}
}

func (m *StateManager) eventLocked(t domain.EventType, participantID string) domain.GameEvent {
	return domain.GameEvent{
		ID:            m.newID(),
		Type:          t,
		GameID:        m.state.GameID,
		ParticipantID: participantID,
		Timestamp:     m.now(),
	}
}

func (m *StateManager) appendToLog(evt domain.GameEvent) {
	m.logMu.Lock()
	m.events = append(m.events, evt)
	m.logMu.Unlock()
}

func (m *StateManager) notifyState(s domain.GameState) {
	m.stateMu.Lock()
	handlers := make([]func(domain.GameState), 0, len(m.stateOrder))
	for _, id := range m.stateOrder {
		if h, ok := m.stateSubs[id]; ok {
			handlers = append(handlers, h)
		}
	}
	m.stateMu.Unlock()
	for _, h := range handlers {
		h(s)
	}
}

// answerMatches grades an answer against the correct answer and its accepted
// alternatives, ignoring case and surrounding whitespace.
// questionPoints is the award for a correct answer: the question's fixed
// score when it declares one, the claimed point value otherwise.
func questionPoints(q domain.Question, sub domain.Submission) int {
	if q.Points > 0 {
		return q.Points
	}
	return sub.PointValue
}

func answerMatches(q domain.Question, answer string) bool {
	given := strings.ToLower(strings.TrimSpace(answer))
	if given == "" {
		return false
	}
	if given == strings.ToLower(strings.TrimSpace(q.CorrectAnswer)) {
		return true
	}
	for _, alt := range q.AcceptedAnswers {
		if given == strings.ToLower(strings.TrimSpace(alt)) {
			return true
		}
	}
	return false
}
