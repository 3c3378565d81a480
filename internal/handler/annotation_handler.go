package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"reader-annotations/internal/domain"
)

// AnnotationHandler serves highlights, bookmarks and margin notes.
type AnnotationHandler struct {
	annotationService domain.AnnotationService
	logger            domain.Logger
}

func NewAnnotationHandler(annotationService domain.AnnotationService, logger domain.Logger) *AnnotationHandler {
	return &AnnotationHandler{annotationService: annotationService, logger: logger}
}

// ListForBook handles GET /books/{id}/annotations
func (h *AnnotationHandler) ListForBook(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	bookID := mux.Vars(r)["id"]
	all, err := h.annotationService.ListForBook(r.Context(), bookID, user.ID)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to list annotations", "user_id", user.ID, "book_id", bookID)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// UpsertHighlight handles PUT /books/{id}/highlights
func (h *AnnotationHandler) UpsertHighlight(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in domain.HighlightInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	in.BookID = mux.Vars(r)["id"]

	saved, err := h.annotationService.UpsertHighlight(r.Context(), user.ID, &in)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to save highlight", "user_id", user.ID, "book_id", in.BookID)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type bookmarkRequest struct {
	Note string `json:"note"`
}

// UpsertBookmark handles PUT /books/{id}/bookmarks/{page}
func (h *AnnotationHandler) UpsertBookmark(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	var req bookmarkRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	saved, err := h.annotationService.UpsertBookmark(r.Context(), user.ID, vars["id"], page, req.Note)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to save bookmark", "user_id", user.ID, "book_id", vars["id"])
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// CreateAnnotation handles POST /books/{id}/annotations
func (h *AnnotationHandler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in domain.AnnotationInput
	if !decodeJSON(w, r, &in, false) {
		return
	}
	in.BookID = mux.Vars(r)["id"]

	created, err := h.annotationService.CreateAnnotation(r.Context(), user.ID, &in)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to create annotation", "user_id", user.ID, "book_id", in.BookID)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateAnnotation handles PATCH /annotations/{id}
func (h *AnnotationHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var upd domain.AnnotationUpdate
	if !decodeJSON(w, r, &upd, false) {
		return
	}

	updated, err := h.annotationService.UpdateAnnotation(r.Context(), user.ID, mux.Vars(r)["id"], &upd)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to update annotation", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete returns a handler for DELETE /{kind}s/{id}
func (h *AnnotationHandler) Delete(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := requireUser(w, r)
		if !ok {
			return
		}
		if err := h.annotationService.Delete(r.Context(), kind, mux.Vars(r)["id"], user.ID); err != nil {
			writeAppError(w, h.logger, err, "Failed to delete "+string(kind), "user_id", user.ID)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
