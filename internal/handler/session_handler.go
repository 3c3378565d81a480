package handler

import (
	"net/http"

	"reader-annotations/internal/domain"
)

// SessionHandler records finished sessions and drives live trackers.
type SessionHandler struct {
	goalService    domain.GoalService
	trackerService domain.TrackerService
	logger         domain.Logger
}

func NewSessionHandler(goalService domain.GoalService, trackerService domain.TrackerService, logger domain.Logger) *SessionHandler {
	return &SessionHandler{goalService: goalService, trackerService: trackerService, logger: logger}
}

// RecordSession handles POST /sessions. The client supplies the session id,
// which makes retries safe.
func (h *SessionHandler) RecordSession(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var sess domain.ReadingSession
	if !decodeJSON(w, r, &sess, false) {
		return
	}
	sess.UserID = user.ID

	goals, err := h.goalService.RecordSession(r.Context(), &sess)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to record session", "user_id", user.ID, "book_id", sess.BookID)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": sess, "goals": goals})
}

type trackerRequest struct {
	BookID string `json:"book_id"`
	Page   int    `json:"page"`
}

type trackerResponse struct {
	Session   *domain.SessionSnapshot `json:"session"`
	Preempted *domain.SessionResult   `json:"preempted,omitempty"`
}

// Start handles POST /sessions/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req trackerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	snap, preempted, err := h.trackerService.Start(r.Context(), user.ID, clientID(r), req.BookID, req.Page)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to start session", "user_id", user.ID, "book_id", req.BookID)
		return
	}
	writeJSON(w, http.StatusOK, trackerResponse{Session: snap, Preempted: preempted})
}

// Pause handles POST /sessions/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.trackerService.Pause(user.ID, clientID(r))
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to pause session", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, trackerResponse{Session: snap})
}

// Resume handles POST /sessions/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req trackerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	snap, preempted, err := h.trackerService.Resume(r.Context(), user.ID, clientID(r), req.BookID, req.Page)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to resume session", "user_id", user.ID, "book_id", req.BookID)
		return
	}
	writeJSON(w, http.StatusOK, trackerResponse{Session: snap, Preempted: preempted})
}

// Turn handles POST /sessions/page
func (h *SessionHandler) Turn(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req trackerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	snap, err := h.trackerService.Turn(user.ID, clientID(r), req.Page)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to update page", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, trackerResponse{Session: snap})
}

// End handles POST /sessions/end. With no session running it answers 204.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req trackerRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	res, err := h.trackerService.End(r.Context(), user.ID, clientID(r), req.BookID, req.Page)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to end session", "user_id", user.ID, "book_id", req.BookID)
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
