package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	qrcode "github.com/skip2/go-qrcode"
	"tony-trivia-service/internal/app"
	"tony-trivia-service/internal/domain"
)

// API serves the REST surface for game management alongside the websocket
// realtime channel.
type API struct {
	service     *app.GameService
	ws          *WSHandler
	joinBaseURL string
}

func NewAPI(service *app.GameService, ws *WSHandler, joinBaseURL string) *API {
	return &API{service: service, ws: ws, joinBaseURL: joinBaseURL}
}

// Router assembles the full HTTP surface: REST endpoints under /api, the
// websocket upgrade at /ws, and a liveness probe.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", a.ws.ServeWS)

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", a.createGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", a.getState)
			r.Delete("/", a.destroyGame)
			r.Post("/actions", a.postAction)
			r.Get("/leaderboard", a.getLeaderboard)
			r.Get("/rounds/{number}/stats", a.getRoundStats)
			r.Get("/events", a.getEvents)
			r.Get("/submissions", a.getSubmissions)
			r.Get("/join-qr", a.getJoinQR)
		})
	})
	return r
}

type createGameRequest struct {
	GameID string `json:"gameId"`
	RoomID string `json:"roomId"`
	HostID string `json:"hostId"`
	PackID string `json:"packId"`
}

func (a *API) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameID == "" || req.PackID == "" {
		writeError(w, http.StatusBadRequest, "gameId and packId are required")
		return
	}
	state, err := a.service.CreateGame(r.Context(), req.GameID, req.RoomID, req.HostID, req.PackID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (a *API) getState(w http.ResponseWriter, r *http.Request) {
	state, err := a.service.State(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) destroyGame(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DestroyGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postAction accepts any game action as {"kind": "...", ...fields}. The
// game id and timestamp come from the server, never from the caller.
func (a *API) postAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var probe actionPayload
	if err := json.Unmarshal(body, &probe); err != nil || probe.Kind == "" {
		writeError(w, http.StatusBadRequest, "action kind is required")
		return
	}
	action, err := domain.DecodeAction(probe.Kind, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	action = domain.WithBase(action, domain.ActionBase{
		GameID:    chi.URLParam(r, "gameID"),
		Timestamp: time.Now(),
	})
	state, err := a.service.ExecuteAction(r.Context(), action)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := a.service.Leaderboard(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (a *API) getRoundStats(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "round number must be an integer")
		return
	}
	stats, err := a.service.RoundStats(r.Context(), chi.URLParam(r, "gameID"), number)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) getEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.service.EventLog(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (a *API) getSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := a.service.Submissions(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// getJoinQR renders a QR code pointing players at the room join page.
func (a *API) getJoinQR(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if _, err := a.service.State(r.Context(), gameID); err != nil {
		writeServiceError(w, err)
		return
	}
	png, err := qrcode.Encode(a.joinBaseURL+"?gameId="+gameID, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrPackNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrGameIDMismatch),
		errors.Is(err, domain.ErrMissingTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrGamePaused), errors.Is(err, domain.ErrManagerDestroyed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}
