package http

import (
	"sync"

	"tony-trivia-service/internal/domain"
)

// roomHub fans envelopes out to every connection in a game room. Slow
// consumers see the freshest frames; stale intermediate ones are dropped.
type roomHub struct {
	mu    sync.Mutex
	rooms map[string]map[chan domain.Envelope]struct{}
}

func newRoomHub() *roomHub {
	return &roomHub{rooms: make(map[string]map[chan domain.Envelope]struct{})}
}

// join registers a connection's receive channel. The returned func leaves
// the room and closes the channel.
func (h *roomHub) join(roomID string) (chan domain.Envelope, func()) {
	ch := make(chan domain.Envelope, 16)

	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[chan domain.Envelope]struct{})
		h.rooms[roomID] = room
	}
	room[ch] = struct{}{}
	h.mu.Unlock()

	leave := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		room, ok := h.rooms[roomID]
		if !ok {
			return
		}
		if _, ok := room[ch]; ok {
			delete(room, ch)
			close(ch)
		}
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	return ch, leave
}

func (h *roomHub) broadcast(roomID string, env domain.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.rooms[roomID] {
		select {
		case ch <- env:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- env
		}
	}
}
