package game

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"tony-trivia-service/internal/domain"
)

// answerRecord is the append-only history the score manager replays when a
// full recompute is requested after host corrections.
type answerRecord struct {
	ParticipantID string    `json:"participantId"`
	QuestionID    string    `json:"questionId"`
	Correct       bool      `json:"correct"`
	PointValue    int       `json:"pointValue"`
	RoundNumber   int       `json:"roundNumber,omitempty"`
	At            time.Time `json:"at"`
}

// ScoreManager aggregates per-player and per-team scores and maintains the
// ranked leaderboard. Correct answers add their claimed point value; incorrect
// answers only count against accuracy, never against the total.
type ScoreManager struct {
	mu         sync.RWMutex
	gameID     string
	bus        *eventBus
	now        func() time.Time
	newID      func() string
	players    map[string]*domain.PlayerScore
	teams      map[string]*domain.TeamScore
	memberTeam map[string]string // player id -> team id
	regOrder   map[string]int    // participant id -> registration sequence
	seq        int
	history    []answerRecord
}

func NewScoreManager(gameID string) *ScoreManager {
	return newScoreManager(gameID, newEventBus(), time.Now)
}

func newScoreManager(gameID string, bus *eventBus, now func() time.Time) *ScoreManager {
	return &ScoreManager{
		gameID:     gameID,
		bus:        bus,
		now:        now,
		newID:      uuid.NewString,
		players:    make(map[string]*domain.PlayerScore),
		teams:      make(map[string]*domain.TeamScore),
		memberTeam: make(map[string]string),
		regOrder:   make(map[string]int),
	}
}

// RegisterPlayer registers or refreshes a player. Registering twice updates
// the display name without resetting the score.
func (m *ScoreManager) RegisterPlayer(playerID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerPlayerLocked(playerID, name)
}

func (m *ScoreManager) registerPlayerLocked(playerID, name string) *domain.PlayerScore {
	if p, ok := m.players[playerID]; ok {
		p.Name = name
		p.LastUpdated = m.now()
		return p
	}
	p := &domain.PlayerScore{
		PlayerID:        playerID,
		Name:            name,
		RoundScores:     make(map[int]int),
		PointValuesUsed: make(map[int]int),
		LastUpdated:     m.now(),
	}
	m.players[playerID] = p
	m.regOrder[playerID] = m.seq
	m.seq++
	return p
}

// RegisterTeam registers or refreshes a team.
func (m *ScoreManager) RegisterTeam(teamID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerTeamLocked(teamID, name)
}

func (m *ScoreManager) registerTeamLocked(teamID, name string) *domain.TeamScore {
	if t, ok := m.teams[teamID]; ok {
		t.Name = name
		t.LastUpdated = m.now()
		return t
	}
	t := &domain.TeamScore{
		TeamID:      teamID,
		Name:        name,
		RoundScores: make(map[int]int),
		Members:     make(map[string]int),
		LastUpdated: m.now(),
	}
	m.teams[teamID] = t
	m.regOrder[teamID] = m.seq
	m.seq++
	return t
}

// AddPlayerToTeam registers the player if needed and binds them to the team.
func (m *ScoreManager) AddPlayerToTeam(playerID, teamID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	team, ok := m.teams[teamID]
	if !ok {
		return fmt.Errorf("team %s is not registered", teamID)
	}
	m.registerPlayerLocked(playerID, name)
	m.memberTeam[playerID] = teamID
	if _, ok := team.Members[playerID]; !ok {
		team.Members[playerID] = 0
	}
	return nil
}

// RemovePlayer drops a player, their team membership, and their history.
func (m *ScoreManager) RemovePlayer(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[playerID]; !ok {
		return false
	}
	delete(m.players, playerID)
	delete(m.regOrder, playerID)
	if teamID, ok := m.memberTeam[playerID]; ok {
		delete(m.memberTeam, playerID)
		if team, ok := m.teams[teamID]; ok {
			delete(team.Members, playerID)
			m.recalculateTeamLocked(teamID)
		}
	}
	kept := m.history[:0]
	for _, rec := range m.history {
		if rec.ParticipantID != playerID {
			kept = append(kept, rec)
		}
	}
	m.history = kept
	return true
}

// CalculateScore applies one graded answer. A correct answer adds the point
// value and bumps the correct count; an incorrect one only bumps the
// incorrect count. Team aggregates are recomputed whenever a member changes.
func (m *ScoreManager) CalculateScore(participantID, questionID string, isCorrect bool, pointValue, roundNumber int) error {
	m.mu.Lock()
	rec := answerRecord{
		ParticipantID: participantID,
		QuestionID:    questionID,
		Correct:       isCorrect,
		PointValue:    pointValue,
		RoundNumber:   roundNumber,
		At:            m.now(),
	}
	if err := m.applyRecordLocked(rec); err != nil {
		m.mu.Unlock()
		return err
	}
	m.history = append(m.history, rec)
	m.mu.Unlock()

	// Published outside the lock so handlers may query the manager.
	m.publish(domain.EventScoreUpdated, participantID)
	m.publish(domain.EventLeaderboardUpdated, participantID)
	return nil
}

func (m *ScoreManager) applyRecordLocked(rec answerRecord) error {
	if p, ok := m.players[rec.ParticipantID]; ok {
		applyToPlayer(p, rec, m.now())
		if teamID, ok := m.memberTeam[rec.ParticipantID]; ok {
			if team, ok := m.teams[teamID]; ok {
				applyToTeam(team, rec, m.now())
				team.Members[rec.ParticipantID] = p.TotalScore
			}
		}
		return nil
	}
	if t, ok := m.teams[rec.ParticipantID]; ok {
		applyToTeam(t, rec, m.now())
		return nil
	}
	return fmt.Errorf("participant %s is not registered", rec.ParticipantID)
}

func applyToPlayer(p *domain.PlayerScore, rec answerRecord, now time.Time) {
	if rec.Correct {
		p.TotalScore += rec.PointValue
		p.CorrectAnswers++
		if rec.RoundNumber > 0 {
			p.RoundScores[rec.RoundNumber] += rec.PointValue
		}
		p.PointValuesUsed[rec.PointValue]++
	} else {
		p.IncorrectAnswers++
	}
	p.Accuracy = accuracy(p.CorrectAnswers, p.IncorrectAnswers)
	p.LastUpdated = now
}

func applyToTeam(t *domain.TeamScore, rec answerRecord, now time.Time) {
	if rec.Correct {
		t.TotalScore += rec.PointValue
		t.CorrectAnswers++
		if rec.RoundNumber > 0 {
			t.RoundScores[rec.RoundNumber] += rec.PointValue
		}
	} else {
		t.IncorrectAnswers++
	}
	t.Accuracy = accuracy(t.CorrectAnswers, t.IncorrectAnswers)
	t.LastUpdated = now
}

// accuracy is correct/(correct+incorrect) as a percentage, two decimals.
func accuracy(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}

// UpdatePlayerScore overwrites the supplied fields; used for host
// corrections. A later recompute discards these overrides.
func (m *ScoreManager) UpdatePlayerScore(playerID string, upd domain.ScoreUpdate) bool {
	m.mu.Lock()
	p, ok := m.players[playerID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.TotalScore != nil {
		p.TotalScore = *upd.TotalScore
	}
	if upd.CorrectAnswers != nil {
		p.CorrectAnswers = *upd.CorrectAnswers
	}
	if upd.IncorrectAnswers != nil {
		p.IncorrectAnswers = *upd.IncorrectAnswers
	}
	p.Accuracy = accuracy(p.CorrectAnswers, p.IncorrectAnswers)
	p.LastUpdated = m.now()
	m.mu.Unlock()
	m.publish(domain.EventScoreUpdated, playerID)
	return true
}

// UpdateTeamScore overwrites the supplied fields on a team aggregate.
func (m *ScoreManager) UpdateTeamScore(teamID string, upd domain.ScoreUpdate) bool {
	m.mu.Lock()
	t, ok := m.teams[teamID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.TotalScore != nil {
		t.TotalScore = *upd.TotalScore
	}
	if upd.CorrectAnswers != nil {
		t.CorrectAnswers = *upd.CorrectAnswers
	}
	if upd.IncorrectAnswers != nil {
		t.IncorrectAnswers = *upd.IncorrectAnswers
	}
	t.Accuracy = accuracy(t.CorrectAnswers, t.IncorrectAnswers)
	t.LastUpdated = m.now()
	m.mu.Unlock()
	m.publish(domain.EventScoreUpdated, teamID)
	return true
}

// RecalculateAllScores rebuilds every aggregate from the recorded answer
// history, discarding any manually-overwritten values.
func (m *ScoreManager) RecalculateAllScores() {
	m.mu.Lock()
	m.resetAggregatesLocked()
	for _, rec := range m.history {
		// Records for removed participants were pruned with them.
		_ = m.applyRecordLocked(rec)
	}
	m.mu.Unlock()
	m.publish(domain.EventScoreRecalculated, "")
	m.publish(domain.EventLeaderboardUpdated, "")
}

// RecalculatePlayerScore rebuilds one player's aggregate from history.
func (m *ScoreManager) RecalculatePlayerScore(playerID string) bool {
	m.mu.Lock()
	p, ok := m.players[playerID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	resetPlayer(p)
	now := m.now()
	for _, rec := range m.history {
		if rec.ParticipantID == playerID {
			applyToPlayer(p, rec, now)
		}
	}
	if teamID, ok := m.memberTeam[playerID]; ok {
		m.recalculateTeamLocked(teamID)
	}
	m.mu.Unlock()
	m.publish(domain.EventScoreRecalculated, playerID)
	return true
}

// RecalculateTeamScore rebuilds a team's aggregate from history: the team's
// own records plus every current member's records.
func (m *ScoreManager) RecalculateTeamScore(teamID string) bool {
	m.mu.Lock()
	if _, ok := m.teams[teamID]; !ok {
		m.mu.Unlock()
		return false
	}
	m.recalculateTeamLocked(teamID)
	m.mu.Unlock()
	m.publish(domain.EventScoreRecalculated, teamID)
	return true
}

func (m *ScoreManager) recalculateTeamLocked(teamID string) {
	t := m.teams[teamID]
	resetTeam(t)
	now := m.now()
	for _, rec := range m.history {
		if rec.ParticipantID == teamID {
			applyToTeam(t, rec, now)
			continue
		}
		if m.memberTeam[rec.ParticipantID] == teamID {
			applyToTeam(t, rec, now)
		}
	}
	for pid := range t.Members {
		if p, ok := m.players[pid]; ok {
			t.Members[pid] = p.TotalScore
		}
	}
}

func resetPlayer(p *domain.PlayerScore) {
	p.TotalScore = 0
	p.CorrectAnswers = 0
	p.IncorrectAnswers = 0
	p.Accuracy = 0
	p.RoundScores = make(map[int]int)
	p.PointValuesUsed = make(map[int]int)
}

func resetTeam(t *domain.TeamScore) {
	t.TotalScore = 0
	t.CorrectAnswers = 0
	t.IncorrectAnswers = 0
	t.Accuracy = 0
	t.RoundScores = make(map[int]int)
	for pid := range t.Members {
		t.Members[pid] = 0
	}
}

func (m *ScoreManager) resetAggregatesLocked() {
	for _, p := range m.players {
		resetPlayer(p)
	}
	for _, t := range m.teams {
		resetTeam(t)
	}
}

// GetPlayerScore returns a copy of one player's aggregate.
func (m *ScoreManager) GetPlayerScore(playerID string) (domain.PlayerScore, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[playerID]
	if !ok {
		return domain.PlayerScore{}, false
	}
	return copyPlayer(p), true
}

// GetTeamScore returns a copy of one team's aggregate.
func (m *ScoreManager) GetTeamScore(teamID string) (domain.TeamScore, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[teamID]
	if !ok {
		return domain.TeamScore{}, false
	}
	return copyTeam(t), true
}

// ParticipantCount returns how many players and teams are registered.
func (m *ScoreManager) ParticipantCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players) + len(m.teams)
}

// GetLeaderboard combines player and team entries, sorted descending by
// score. Ties break by earliest registration order, which is stable and
// explicit. Players and teams are ranked independently within the combined
// list, each entry carrying its own type-scoped 1-based rank.
func (m *ScoreManager) GetLeaderboard() domain.Leaderboard {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(m.players)+len(m.teams))
	for _, p := range m.players {
		entries = append(entries, domain.LeaderboardEntry{
			ID:             p.PlayerID,
			Name:           p.Name,
			Score:          p.TotalScore,
			Type:           domain.EntryPlayer,
			Accuracy:       p.Accuracy,
			CorrectAnswers: p.CorrectAnswers,
			TotalAnswers:   p.CorrectAnswers + p.IncorrectAnswers,
		})
	}
	for _, t := range m.teams {
		entries = append(entries, domain.LeaderboardEntry{
			ID:             t.TeamID,
			Name:           t.Name,
			Score:          t.TotalScore,
			Type:           domain.EntryTeam,
			Accuracy:       t.Accuracy,
			CorrectAnswers: t.CorrectAnswers,
			TotalAnswers:   t.CorrectAnswers + t.IncorrectAnswers,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return m.regOrder[entries[i].ID] < m.regOrder[entries[j].ID]
	})

	playerRank, teamRank := 0, 0
	for i := range entries {
		switch entries[i].Type {
		case domain.EntryPlayer:
			playerRank++
			entries[i].Rank = playerRank
		case domain.EntryTeam:
			teamRank++
			entries[i].Rank = teamRank
		}
	}

	return domain.Leaderboard{
		GameID:    m.gameID,
		Entries:   entries,
		UpdatedAt: m.now(),
	}
}

// GetRoundStatistics summarizes scores recorded for one round.
func (m *ScoreManager) GetRoundStatistics(roundNumber int) domain.RoundStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[string]int)
	for _, rec := range m.history {
		if rec.RoundNumber != roundNumber {
			continue
		}
		if _, ok := totals[rec.ParticipantID]; !ok {
			totals[rec.ParticipantID] = 0
		}
		if rec.Correct {
			totals[rec.ParticipantID] += rec.PointValue
		}
	}

	stats := domain.RoundStatistics{RoundNumber: roundNumber, Participants: len(totals)}
	if len(totals) == 0 {
		return stats
	}
	sum := 0
	first := true
	for _, total := range totals {
		sum += total
		if first || total > stats.Highest {
			stats.Highest = total
		}
		if first || total < stats.Lowest {
			stats.Lowest = total
		}
		first = false
	}
	stats.Average = math.Round(float64(sum)/float64(len(totals))*100) / 100
	return stats
}

// scoreSnapshot is the serialized form of ExportScores.
type scoreSnapshot struct {
	Players    map[string]*domain.PlayerScore `json:"players"`
	Teams      map[string]*domain.TeamScore   `json:"teams"`
	MemberTeam map[string]string              `json:"memberTeam"`
	RegOrder   map[string]int                 `json:"regOrder"`
	Seq        int                            `json:"seq"`
	History    []answerRecord                 `json:"history"`
}

// ExportScores serializes the full score state as an opaque snapshot string.
func (m *ScoreManager) ExportScores() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := scoreSnapshot{
		Players:    m.players,
		Teams:      m.teams,
		MemberTeam: m.memberTeam,
		RegOrder:   m.regOrder,
		Seq:        m.seq,
		History:    m.history,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("export scores: %w", err)
	}
	return string(data), nil
}

// ImportScores restores a snapshot produced by ExportScores.
func (m *ScoreManager) ImportScores(serialized string) error {
	var snap scoreSnapshot
	if err := json.Unmarshal([]byte(serialized), &snap); err != nil {
		return fmt.Errorf("import scores: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players = snap.Players
	if m.players == nil {
		m.players = make(map[string]*domain.PlayerScore)
	}
	m.teams = snap.Teams
	if m.teams == nil {
		m.teams = make(map[string]*domain.TeamScore)
	}
	m.memberTeam = snap.MemberTeam
	if m.memberTeam == nil {
		m.memberTeam = make(map[string]string)
	}
	m.regOrder = snap.RegOrder
	if m.regOrder == nil {
		m.regOrder = make(map[string]int)
	}
	m.seq = snap.Seq
	m.history = snap.History
	for _, p := range m.players {
		if p.RoundScores == nil {
			p.RoundScores = make(map[int]int)
		}
		if p.PointValuesUsed == nil {
			p.PointValuesUsed = make(map[int]int)
		}
	}
	for _, t := range m.teams {
		if t.RoundScores == nil {
			t.RoundScores = make(map[int]int)
		}
		if t.Members == nil {
			t.Members = make(map[string]int)
		}
	}
	return nil
}

// ResetScores clears all player and team state and the answer history.
func (m *ScoreManager) ResetScores() {
	m.mu.Lock()
	m.players = make(map[string]*domain.PlayerScore)
	m.teams = make(map[string]*domain.TeamScore)
	m.memberTeam = make(map[string]string)
	m.regOrder = make(map[string]int)
	m.seq = 0
	m.history = nil
	m.mu.Unlock()
	m.publish(domain.EventScoresReset, "")
}

// Subscribe registers a handler for score events.
func (m *ScoreManager) Subscribe(h EventHandler) func() {
	return m.bus.subscribe(h)
}

func (m *ScoreManager) publish(t domain.EventType, participantID string) {
	m.bus.publish(domain.GameEvent{
		ID:            m.newID(),
		Type:          t,
		GameID:        m.gameID,
		ParticipantID: participantID,
		Timestamp:     m.now(),
	})
}

func copyPlayer(p *domain.PlayerScore) domain.PlayerScore {
	out := *p
	out.RoundScores = make(map[int]int, len(p.RoundScores))
	for k, v := range p.RoundScores {
		out.RoundScores[k] = v
	}
	out.PointValuesUsed = make(map[int]int, len(p.PointValuesUsed))
	for k, v := range p.PointValuesUsed {
		out.PointValuesUsed[k] = v
	}
	return out
}

func copyTeam(t *domain.TeamScore) domain.TeamScore {
	out := *t
	out.RoundScores = make(map[int]int, len(t.RoundScores))
	for k, v := range t.RoundScores {
		out.RoundScores[k] = v
	}
	out.Members = make(map[string]int, len(t.Members))
	for k, v := range t.Members {
		out.Members[k] = v
	}
	return out
}
