package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"tony-trivia-service/internal/app"
	"tony-trivia-service/internal/domain"
)

// WSHandler wires websocket connections into the game use cases. Every frame
// on the wire, inbound and outbound, is a domain.Envelope.
type WSHandler struct {
	service  *app.GameService
	presence *PresenceRegistry
	hub      *roomHub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, presence *PresenceRegistry) *WSHandler {
	return &WSHandler{
		service:  service,
		presence: presence,
		hub:      newRoomHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string `json:"questionId"`
	Answer      string `json:"answer"`
	PointValue  int    `json:"pointValue"`
	SubmittedBy string `json:"submittedBy,omitempty"`
}

type actionPayload struct {
	Kind string `json:"kind"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and joins the caller into the
// game room identified by the query parameters.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	teamID := r.URL.Query().Get("teamId")
	if gameID == "" || userID == "" || name == "" {
		http.Error(w, "missing gameId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.JoinPlayer(r.Context(), gameID, userID, name)
	if err != nil {
		_ = conn.WriteJSON(h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: err.Error()}))
		return
	}

	states, cancelStates, err := h.service.SubscribeState(r.Context(), gameID)
	if err != nil {
		_ = conn.WriteJSON(h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: err.Error()}))
		return
	}
	defer cancelStates()

	events, cancelEvents, err := h.service.SubscribeEvents(r.Context(), gameID)
	if err != nil {
		_ = conn.WriteJSON(h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: err.Error()}))
		return
	}
	defer cancelEvents()

	roomCh, leaveRoom := h.hub.join(gameID)
	defer leaveRoom()

	h.presence.Join(gameID, userID, name, teamID)
	defer func() {
		h.presence.Leave(gameID, userID)
		h.hub.broadcast(gameID, h.envelope(domain.BroadcastPresenceState, gameID, "", h.presence.List(gameID)))
	}()

	send := make(chan domain.Envelope, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for env := range send {
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Queue the joined frame before the forwarder starts so it is the first
	// thing the client reads, ahead of any state snapshot.
	send <- h.envelope(domain.BroadcastJoined, gameID, userID, joined)

	go func() {
		defer close(forwardDone)
		for {
			select {
			case state, ok := <-states:
				if !ok {
					return
				}
				select {
				case send <- h.envelope(domain.BroadcastStateChanged, gameID, "", state):
				case <-closeSignals:
					return
				}
			case evt, ok := <-events:
				if !ok {
					return
				}
				env, relay := h.eventEnvelope(gameID, evt)
				if !relay {
					continue
				}
				select {
				case send <- env:
				case <-closeSignals:
					return
				}
			case env, ok := <-roomCh:
				if !ok {
					return
				}
				select {
				case send <- env:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.hub.broadcast(gameID, h.envelope(domain.BroadcastPresenceState, gameID, "", h.presence.List(gameID)))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "ready":
			h.presence.SetStatus(gameID, userID, domain.PresenceReady)
			h.hub.broadcast(gameID, h.envelope(domain.BroadcastMemberReady, gameID, userID, nil))
		case "unready":
			h.presence.SetStatus(gameID, userID, domain.PresenceOnline)
			h.hub.broadcast(gameID, h.envelope(domain.BroadcastMemberUnready, gameID, userID, nil))
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: "invalid answer payload"})
				continue
			}
			_, err := h.service.ExecuteAction(r.Context(), domain.SubmitAnswer{
				ActionBase:    domain.ActionBase{GameID: gameID, Timestamp: time.Now()},
				ParticipantID: participantID(userID, teamID),
				QuestionID:    payload.QuestionID,
				Answer:        payload.Answer,
				PointValue:    payload.PointValue,
				SubmittedBy:   submittedBy(payload.SubmittedBy, userID),
			})
			if err != nil {
				send <- h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: err.Error()})
			}
		case "action":
			var payload actionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Kind == "" {
				send <- h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: "invalid action payload"})
				continue
			}
			action, err := domain.DecodeAction(payload.Kind, inbound.Payload)
			if err != nil {
				send <- h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: err.Error()})
				continue
			}
			action = domain.WithBase(action, domain.ActionBase{GameID: gameID, Timestamp: time.Now()})
			if _, err := h.service.ExecuteAction(r.Context(), action); err != nil {
				send <- h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: err.Error()})
			}
		default:
			send <- h.envelope(domain.BroadcastError, gameID, userID, errorPayload{Message: "unsupported message type"})
		}
	}

	close(closeSignals)
	<-forwardDone
	close(send)
	<-writerDone
}

// eventEnvelope maps internal domain events onto the broadcast frames the
// realtime channel exposes; events without a wire representation stay local.
func (h *WSHandler) eventEnvelope(gameID string, evt domain.GameEvent) (domain.Envelope, bool) {
	switch evt.Type {
	case domain.EventSubmissionCreated:
		return h.envelope(domain.BroadcastAnswerSubmitted, gameID, evt.ParticipantID, evt), true
	case domain.EventScoreUpdated, domain.EventLeaderboardUpdated, domain.EventScoreRecalculated:
		return h.envelope(domain.BroadcastScoreUpdated, gameID, evt.ParticipantID, evt), true
	case domain.EventQuestionPresented:
		return h.envelope(domain.BroadcastQuestionStarted, gameID, "", evt), true
	case domain.EventAnswersLocked, domain.EventTimerExpired:
		return h.envelope(domain.BroadcastQuestionEnded, gameID, "", evt), true
	default:
		return domain.Envelope{}, false
	}
}

func (h *WSHandler) envelope(t domain.BroadcastType, gameID, userID string, payload any) domain.Envelope {
	return domain.Envelope{
		ID:         uuid.NewString(),
		Type:       t,
		GameRoomID: gameID,
		UserID:     userID,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
}

// participantID picks the scoring identity for a submission: the team when
// the member plays on one, the player otherwise.
func participantID(userID, teamID string) string {
	if teamID != "" {
		return teamID
	}
	return userID
}

func submittedBy(explicit, userID string) string {
	if explicit != "" {
		return explicit
	}
	return userID
}
