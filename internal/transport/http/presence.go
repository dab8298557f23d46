package http

import (
	"sort"
	"sync"
	"time"

	"tony-trivia-service/internal/domain"
)

// Member is one entry on a room's presence feed.
type Member struct {
	UserID   string                `json:"userId"`
	Name     string                `json:"name"`
	TeamID   string                `json:"teamId,omitempty"`
	Status   domain.PresenceStatus `json:"status"`
	LastSeen time.Time             `json:"lastSeen"`
}

// PresenceRegistry tracks who is connected to each game room and their ready
// state. It is transport-level state: scores and submissions never depend on
// presence.
type PresenceRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Member
	now   func() time.Time
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		rooms: make(map[string]map[string]*Member),
		now:   time.Now,
	}
}

// Join marks a member online in a room, registering them if needed.
func (p *PresenceRegistry) Join(roomID, userID, name, teamID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	room, ok := p.rooms[roomID]
	if !ok {
		room = make(map[string]*Member)
		p.rooms[roomID] = room
	}
	room[userID] = &Member{
		UserID:   userID,
		Name:     name,
		TeamID:   teamID,
		Status:   domain.PresenceOnline,
		LastSeen: p.now(),
	}
}

// SetStatus updates a member's presence status. Unknown members are ignored.
func (p *PresenceRegistry) SetStatus(roomID, userID string, status domain.PresenceStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	member, ok := p.rooms[roomID][userID]
	if !ok {
		return false
	}
	member.Status = status
	member.LastSeen = p.now()
	return true
}

// Leave marks a member offline; the room forgets empty membership.
func (p *PresenceRegistry) Leave(roomID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	room, ok := p.rooms[roomID]
	if !ok {
		return
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(p.rooms, roomID)
	}
}

// List returns the room's members ordered by user id.
func (p *PresenceRegistry) List(roomID string) []Member {
	p.mu.RLock()
	defer p.mu.RUnlock()
	room := p.rooms[roomID]
	out := make([]Member, 0, len(room))
	for _, member := range room {
		out = append(out, *member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ReadyCount reports how many members in a room are marked ready.
func (p *PresenceRegistry) ReadyCount(roomID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, member := range p.rooms[roomID] {
		if member.Status == domain.PresenceReady {
			n++
		}
	}
	return n
}
