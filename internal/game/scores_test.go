package game

import (
	"testing"

	"tony-trivia-service/internal/domain"
)

func TestIncorrectAnswerNeverLowersScore(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")

	if err := m.CalculateScore("alice", "q1", true, 5, 1); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	p, _ := m.GetPlayerScore("alice")
	if p.TotalScore != 5 || p.CorrectAnswers != 1 {
		t.Fatalf("after correct answer: %+v", p)
	}

	if err := m.CalculateScore("alice", "q2", false, 3, 1); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	p, _ = m.GetPlayerScore("alice")
	if p.TotalScore != 5 {
		t.Fatalf("expected total to stay 5, got %d", p.TotalScore)
	}
	if p.IncorrectAnswers != 1 {
		t.Fatalf("expected 1 incorrect answer, got %d", p.IncorrectAnswers)
	}
	if p.Accuracy != 50.00 {
		t.Fatalf("expected accuracy 50.00, got %v", p.Accuracy)
	}
	if p.RoundScores[1] != 5 {
		t.Fatalf("expected round 1 score 5, got %d", p.RoundScores[1])
	}
	if p.PointValuesUsed[5] != 1 {
		t.Fatalf("expected point value 5 recorded, got %v", p.PointValuesUsed)
	}
}

func TestCalculateScoreRequiresRegistration(t *testing.T) {
	m := NewScoreManager("g1")
	if err := m.CalculateScore("ghost", "q1", true, 5, 1); err == nil {
		t.Fatalf("expected unregistered participant to fail")
	}
}

func TestLeaderboardOrderingAndRanks(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")
	m.RegisterPlayer("bob", "Bob")
	m.RegisterPlayer("carol", "Carol")
	m.RegisterTeam("reds", "The Reds")

	m.CalculateScore("alice", "q1", true, 3, 1)
	m.CalculateScore("bob", "q1", true, 5, 1)
	m.CalculateScore("carol", "q1", true, 3, 1)
	m.CalculateScore("reds", "q1", true, 5, 1)

	lb := m.GetLeaderboard()
	if lb.GameID != "g1" {
		t.Fatalf("expected game id g1, got %s", lb.GameID)
	}
	if len(lb.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(lb.Entries))
	}
	// Descending by score; the 5s sort before the 3s, and the 3-point tie
	// breaks by registration order (alice before carol).
	ids := []string{lb.Entries[0].ID, lb.Entries[1].ID, lb.Entries[2].ID, lb.Entries[3].ID}
	if ids[0] != "bob" || ids[1] != "reds" || ids[2] != "alice" || ids[3] != "carol" {
		t.Fatalf("unexpected ordering %v", ids)
	}
	// Ranks are scoped per entry type.
	for _, e := range lb.Entries {
		switch e.ID {
		case "bob":
			if e.Type != domain.EntryPlayer || e.Rank != 1 {
				t.Fatalf("bob: %+v", e)
			}
		case "reds":
			if e.Type != domain.EntryTeam || e.Rank != 1 {
				t.Fatalf("reds: %+v", e)
			}
		case "alice":
			if e.Rank != 2 {
				t.Fatalf("alice: %+v", e)
			}
		case "carol":
			if e.Rank != 3 {
				t.Fatalf("carol: %+v", e)
			}
		}
	}
}

func TestTeamAggregation(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterTeam("reds", "The Reds")
	if err := m.AddPlayerToTeam("alice", "reds", "Alice"); err != nil {
		t.Fatalf("add alice: %v", err)
	}
	if err := m.AddPlayerToTeam("bob", "reds", "Bob"); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if err := m.AddPlayerToTeam("x", "missing", "X"); err == nil {
		t.Fatalf("expected unknown team to fail")
	}

	m.CalculateScore("alice", "q1", true, 5, 1)
	m.CalculateScore("bob", "q2", true, 3, 1)
	m.CalculateScore("bob", "q3", false, 1, 1)

	team, ok := m.GetTeamScore("reds")
	if !ok {
		t.Fatalf("expected team score")
	}
	if team.TotalScore != 8 {
		t.Fatalf("expected team total 8, got %d", team.TotalScore)
	}
	if team.Members["alice"] != 5 || team.Members["bob"] != 3 {
		t.Fatalf("unexpected member contributions %v", team.Members)
	}
	if team.CorrectAnswers != 2 || team.IncorrectAnswers != 1 {
		t.Fatalf("unexpected team counts %+v", team)
	}
	if team.RoundScores[1] != 8 {
		t.Fatalf("expected round 1 team score 8, got %d", team.RoundScores[1])
	}
}

func TestManualOverrideThenRecalculate(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")
	m.CalculateScore("alice", "q1", true, 5, 1)

	total := 99
	if !m.UpdatePlayerScore("alice", domain.ScoreUpdate{TotalScore: &total}) {
		t.Fatalf("update failed")
	}
	p, _ := m.GetPlayerScore("alice")
	if p.TotalScore != 99 {
		t.Fatalf("expected override 99, got %d", p.TotalScore)
	}

	// Recomputation replays history and discards the override.
	m.RecalculateAllScores()
	p, _ = m.GetPlayerScore("alice")
	if p.TotalScore != 5 {
		t.Fatalf("expected recomputed 5, got %d", p.TotalScore)
	}

	if !m.RecalculatePlayerScore("alice") {
		t.Fatalf("recalculate player failed")
	}
	if m.RecalculatePlayerScore("missing") {
		t.Fatalf("expected recalculate of unknown player to fail")
	}
}

func TestRecalculateTeamFromMemberHistory(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterTeam("reds", "The Reds")
	m.AddPlayerToTeam("alice", "reds", "Alice")
	m.CalculateScore("alice", "q1", true, 5, 1)

	total := 0
	m.UpdateTeamScore("reds", domain.ScoreUpdate{TotalScore: &total})
	if !m.RecalculateTeamScore("reds") {
		t.Fatalf("recalculate team failed")
	}
	team, _ := m.GetTeamScore("reds")
	if team.TotalScore != 5 {
		t.Fatalf("expected recomputed team total 5, got %d", team.TotalScore)
	}
}

func TestRemovePlayerPrunesTeamAndHistory(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterTeam("reds", "The Reds")
	m.AddPlayerToTeam("alice", "reds", "Alice")
	m.AddPlayerToTeam("bob", "reds", "Bob")
	m.CalculateScore("alice", "q1", true, 5, 1)
	m.CalculateScore("bob", "q2", true, 3, 1)

	if !m.RemovePlayer("alice") {
		t.Fatalf("remove failed")
	}
	if m.RemovePlayer("alice") {
		t.Fatalf("expected second remove to fail")
	}
	team, _ := m.GetTeamScore("reds")
	if team.TotalScore != 3 {
		t.Fatalf("expected team total 3 after removal, got %d", team.TotalScore)
	}
	if _, ok := team.Members["alice"]; ok {
		t.Fatalf("expected alice dropped from members")
	}
}

func TestRoundStatistics(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")
	m.RegisterPlayer("bob", "Bob")
	m.CalculateScore("alice", "q1", true, 5, 1)
	m.CalculateScore("alice", "q2", true, 3, 1)
	m.CalculateScore("bob", "q1", true, 1, 1)
	m.CalculateScore("bob", "q3", false, 5, 2)

	stats := m.GetRoundStatistics(1)
	if stats.Participants != 2 {
		t.Fatalf("expected 2 participants, got %d", stats.Participants)
	}
	if stats.Highest != 8 || stats.Lowest != 1 {
		t.Fatalf("expected highest 8 lowest 1, got %+v", stats)
	}
	if stats.Average != 4.5 {
		t.Fatalf("expected average 4.5, got %v", stats.Average)
	}

	empty := m.GetRoundStatistics(9)
	if empty.Participants != 0 || empty.Highest != 0 {
		t.Fatalf("expected zero stats for empty round, got %+v", empty)
	}
}

func TestScoreSnapshotRoundTrip(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")
	m.RegisterTeam("reds", "The Reds")
	m.AddPlayerToTeam("bob", "reds", "Bob")
	m.CalculateScore("alice", "q1", true, 5, 1)
	m.CalculateScore("bob", "q2", false, 3, 1)

	snap, err := m.ExportScores()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	restored := NewScoreManager("g1")
	if err := restored.ImportScores(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	p, ok := restored.GetPlayerScore("alice")
	if !ok || p.TotalScore != 5 {
		t.Fatalf("restored alice: %+v", p)
	}
	team, ok := restored.GetTeamScore("reds")
	if !ok || team.IncorrectAnswers != 1 {
		t.Fatalf("restored team: %+v", team)
	}
	// History survives, so recomputation still works after restore.
	restored.RecalculateAllScores()
	p, _ = restored.GetPlayerScore("alice")
	if p.TotalScore != 5 {
		t.Fatalf("recomputed after restore: %+v", p)
	}
	// Registration order survives for tie-breaks.
	lb := restored.GetLeaderboard()
	if len(lb.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(lb.Entries))
	}
}

func TestReRegisterKeepsScore(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")
	m.CalculateScore("alice", "q1", true, 5, 1)
	m.RegisterPlayer("alice", "Alice B.")

	p, _ := m.GetPlayerScore("alice")
	if p.Name != "Alice B." || p.TotalScore != 5 {
		t.Fatalf("expected renamed player with score intact, got %+v", p)
	}
}

func TestResetScoresPublishesEvent(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")
	m.CalculateScore("alice", "q1", true, 5, 1)

	var types []domain.EventType
	m.Subscribe(func(evt domain.GameEvent) { types = append(types, evt.Type) })

	m.ResetScores()
	if m.ParticipantCount() != 0 {
		t.Fatalf("expected no participants after reset")
	}
	if len(types) != 1 || types[0] != domain.EventScoresReset {
		t.Fatalf("expected scoresReset event, got %v", types)
	}
}

func TestScoreEvents(t *testing.T) {
	m := NewScoreManager("g1")
	m.RegisterPlayer("alice", "Alice")

	var types []domain.EventType
	m.Subscribe(func(evt domain.GameEvent) { types = append(types, evt.Type) })

	m.CalculateScore("alice", "q1", true, 5, 1)
	want := []domain.EventType{domain.EventScoreUpdated, domain.EventLeaderboardUpdated}
	if len(types) != 2 || types[0] != want[0] || types[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, types)
	}
}
