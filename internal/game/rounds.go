package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"tony-trivia-service/internal/domain"
)

// RoundManager tracks round progression and point-value exclusivity: within a
// round, each available point value may be claimed by a given participant at
// most once. Claiming is the sole mechanism preventing duplicate scoring
// opportunities.
type RoundManager struct {
	mu      sync.RWMutex
	rounds  []domain.Round
	current int // 1-based pointer; 0 means before the first round
	used    map[int]map[string]map[int]bool
	now     func() time.Time
}

// NewRoundManager copies the round configuration; Round and Question content
// is immutable after game creation.
func NewRoundManager(rounds []domain.Round) *RoundManager {
	return newRoundManagerWithClock(rounds, time.Now)
}

func newRoundManagerWithClock(rounds []domain.Round, now func() time.Time) *RoundManager {
	rs := make([]domain.Round, len(rounds))
	copy(rs, rounds)
	for i := range rs {
		rs[i].Number = i + 1
		if rs[i].Status == "" {
			rs[i].Status = domain.RoundNotStarted
		}
	}
	return &RoundManager{
		rounds: rs,
		used:   make(map[int]map[string]map[int]bool),
		now:    now,
	}
}

// RoundCount returns the number of configured rounds.
func (m *RoundManager) RoundCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rounds)
}

// CurrentRound returns the 1-based round pointer, 0 before the first round.
func (m *RoundManager) CurrentRound() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Round returns a copy of round n.
func (m *RoundManager) Round(n int) (domain.Round, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n < 1 || n > len(m.rounds) {
		return domain.Round{}, false
	}
	return m.rounds[n-1], true
}

// ActiveRound returns the currently active round, if any.
func (m *RoundManager) ActiveRound() (domain.Round, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rounds {
		if r.Status == domain.RoundActive {
			return r, true
		}
	}
	return domain.Round{}, false
}

// StartRound transitions round n to active and moves the pointer to it.
// It fails if n is out of range or another round is already active.
func (m *RoundManager) StartRound(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 || n > len(m.rounds) {
		return false
	}
	for _, r := range m.rounds {
		if r.Status == domain.RoundActive {
			return false
		}
	}
	if m.rounds[n-1].Status == domain.RoundCompleted {
		return false
	}
	started := m.now()
	m.rounds[n-1].Status = domain.RoundActive
	m.rounds[n-1].StartedAt = &started
	m.current = n
	return true
}

// CompleteRound transitions the active round n to completed. It fails if
// round n is not currently active.
func (m *RoundManager) CompleteRound(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 || n > len(m.rounds) {
		return false
	}
	if m.rounds[n-1].Status != domain.RoundActive {
		return false
	}
	completed := m.now()
	m.rounds[n-1].Status = domain.RoundCompleted
	m.rounds[n-1].CompletedAt = &completed
	return true
}

// AdvanceToNextRound moves the pointer forward, never past the last round.
func (m *RoundManager) AdvanceToNextRound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current >= len(m.rounds) {
		return false
	}
	m.current++
	return true
}

// GoToPreviousRound moves the pointer back, never below round 1.
func (m *RoundManager) GoToPreviousRound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current <= 1 {
		return false
	}
	m.current--
	return true
}

// GoToRound jumps the pointer to round n with boundary checks.
func (m *RoundManager) GoToRound(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 || n > len(m.rounds) {
		return false
	}
	m.current = n
	return true
}

// UsePointValue claims a point value for a participant in a round. Repeated
// claims of an already-used value return false rather than failing hard.
func (m *RoundManager) UsePointValue(participantID string, value, roundNumber int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valueAvailableLocked(value, roundNumber) {
		return false
	}
	byParticipant, ok := m.used[roundNumber]
	if !ok {
		byParticipant = make(map[string]map[int]bool)
		m.used[roundNumber] = byParticipant
	}
	values, ok := byParticipant[participantID]
	if !ok {
		values = make(map[int]bool)
		byParticipant[participantID] = values
	}
	if values[value] {
		return false
	}
	values[value] = true
	return true
}

// ReleasePointValue returns a claimed value to the participant's pool.
func (m *RoundManager) ReleasePointValue(participantID string, value, roundNumber int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.used[roundNumber][participantID]
	if !ok || !values[value] {
		return false
	}
	delete(values, value)
	return true
}

// GetUsedPointValues lists the values a participant has claimed in a round.
func (m *RoundManager) GetUsedPointValues(participantID string, roundNumber int) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := m.used[roundNumber][participantID]
	out := make([]int, 0, len(values))
	for v := range values {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// GetRemainingPointValues lists the round's values still open to a participant,
// in the round's configured order.
func (m *RoundManager) GetRemainingPointValues(participantID string, roundNumber int) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if roundNumber < 1 || roundNumber > len(m.rounds) {
		return nil
	}
	claimed := m.used[roundNumber][participantID]
	out := make([]int, 0, len(m.rounds[roundNumber-1].PointValues))
	for _, v := range m.rounds[roundNumber-1].PointValues {
		if !claimed[v] {
			out = append(out, v)
		}
	}
	return out
}

// ValidatePointSelection reports whether a claim would succeed, with inline
// error strings instead of a hard failure.
func (m *RoundManager) ValidatePointSelection(participantID string, value, roundNumber int) domain.ValidationResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []string
	if participantID == "" {
		errs = append(errs, "participant id is required")
	}
	if roundNumber < 1 || roundNumber > len(m.rounds) {
		errs = append(errs, fmt.Sprintf("round %d is out of range", roundNumber))
		return domain.ValidationResult{IsValid: false, Errors: errs}
	}
	if !m.valueAvailableLocked(value, roundNumber) {
		errs = append(errs, fmt.Sprintf("point value %d is not available in round %d", value, roundNumber))
	} else if m.used[roundNumber][participantID][value] {
		errs = append(errs, fmt.Sprintf("point value %d already used in round %d", value, roundNumber))
	}
	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// ValidateRoundCompletion reports whether round n can be completed.
func (m *RoundManager) ValidateRoundCompletion(n int) domain.ValidationResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []string
	if n < 1 || n > len(m.rounds) {
		errs = append(errs, fmt.Sprintf("round %d is out of range", n))
	} else if m.rounds[n-1].Status != domain.RoundActive {
		errs = append(errs, fmt.Sprintf("round %d is not active", n))
	}
	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// ResetRound clears claimed point values and lifecycle state for round n.
func (m *RoundManager) ResetRound(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 || n > len(m.rounds) {
		return false
	}
	delete(m.used, n)
	m.rounds[n-1].Status = domain.RoundNotStarted
	m.rounds[n-1].StartedAt = nil
	m.rounds[n-1].CompletedAt = nil
	return true
}

// ResetAllRounds clears every round's claims and lifecycle state.
func (m *RoundManager) ResetAllRounds() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used = make(map[int]map[string]map[int]bool)
	m.current = 0
	for i := range m.rounds {
		m.rounds[i].Status = domain.RoundNotStarted
		m.rounds[i].StartedAt = nil
		m.rounds[i].CompletedAt = nil
	}
}

// roundManagerSnapshot is the serialized form of ExportState. The schema is an
// implementation detail, not a public contract.
type roundManagerSnapshot struct {
	Current  int                        `json:"current"`
	Statuses map[int]domain.RoundStatus `json:"statuses"`
	Used     map[int]map[string][]int   `json:"used"`
	Started  map[int]time.Time          `json:"started,omitempty"`
	Done     map[int]time.Time          `json:"done,omitempty"`
}

// ExportState serializes the round pointer and all per-participant claims.
func (m *RoundManager) ExportState() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := roundManagerSnapshot{
		Current:  m.current,
		Statuses: make(map[int]domain.RoundStatus, len(m.rounds)),
		Used:     make(map[int]map[string][]int, len(m.used)),
		Started:  make(map[int]time.Time),
		Done:     make(map[int]time.Time),
	}
	for i, r := range m.rounds {
		snap.Statuses[i+1] = r.Status
		if r.StartedAt != nil {
			snap.Started[i+1] = *r.StartedAt
		}
		if r.CompletedAt != nil {
			snap.Done[i+1] = *r.CompletedAt
		}
	}
	for round, byParticipant := range m.used {
		claims := make(map[string][]int, len(byParticipant))
		for pid, values := range byParticipant {
			vs := make([]int, 0, len(values))
			for v := range values {
				vs = append(vs, v)
			}
			sort.Ints(vs)
			claims[pid] = vs
		}
		snap.Used[round] = claims
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("export round state: %w", err)
	}
	return string(data), nil
}

// ImportState restores a snapshot produced by ExportState.
func (m *RoundManager) ImportState(serialized string) error {
	var snap roundManagerSnapshot
	if err := json.Unmarshal([]byte(serialized), &snap); err != nil {
		return fmt.Errorf("import round state: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.Current < 0 || snap.Current > len(m.rounds) {
		return fmt.Errorf("import round state: pointer %d out of range", snap.Current)
	}
	m.current = snap.Current
	for i := range m.rounds {
		if status, ok := snap.Statuses[i+1]; ok {
			m.rounds[i].Status = status
		}
		m.rounds[i].StartedAt = nil
		m.rounds[i].CompletedAt = nil
		if at, ok := snap.Started[i+1]; ok {
			t := at
			m.rounds[i].StartedAt = &t
		}
		if at, ok := snap.Done[i+1]; ok {
			t := at
			m.rounds[i].CompletedAt = &t
		}
	}
	m.used = make(map[int]map[string]map[int]bool, len(snap.Used))
	for round, claims := range snap.Used {
		byParticipant := make(map[string]map[int]bool, len(claims))
		for pid, vs := range claims {
			values := make(map[int]bool, len(vs))
			for _, v := range vs {
				values[v] = true
			}
			byParticipant[pid] = values
		}
		m.used[round] = byParticipant
	}
	return nil
}

func (m *RoundManager) valueAvailableLocked(value, roundNumber int) bool {
	if roundNumber < 1 || roundNumber > len(m.rounds) {
		return false
	}
	for _, v := range m.rounds[roundNumber-1].PointValues {
		if v == value {
			return true
		}
	}
	return false
}
