package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"reader-annotations/internal/domain"
)

// BookHandler handles book-related HTTP requests.
type BookHandler struct {
	bookService domain.BookService
	logger      domain.Logger
}

func NewBookHandler(bookService domain.BookService, logger domain.Logger) *BookHandler {
	return &BookHandler{bookService: bookService, logger: logger}
}

// CreateBook handles POST /books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in domain.BookInput
	if !decodeJSON(w, r, &in, false) {
		return
	}

	book, err := h.bookService.CreateBook(r.Context(), user.ID, &in)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to create book", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// ListBooks handles GET /books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	books, err := h.bookService.ListBooks(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to list books", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// GetBook handles GET /books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	book, err := h.bookService.GetBook(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to get book", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type updateStatusRequest struct {
	Status domain.BookStatus `json:"status"`
}

// UpdateBookStatus handles PATCH /books/{id}/status
func (h *BookHandler) UpdateBookStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	book, err := h.bookService.UpdateBookStatus(r.Context(), mux.Vars(r)["id"], user.ID, req.Status)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to update book status", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.bookService.DeleteBook(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		writeAppError(w, h.logger, err, "Failed to delete book", "user_id", user.ID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
