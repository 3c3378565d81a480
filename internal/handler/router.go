package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"reader-annotations/internal/domain"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *AuthHandler,
	bookHandler *BookHandler,
	annotationHandler *AnnotationHandler,
	sessionHandler *SessionHandler,
	goalHandler *GoalHandler,
	authMiddleware func(http.Handler) http.Handler,
	rateLimit func(http.Handler) http.Handler,
) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"reader-annotations"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)
	if rateLimit != nil {
		protected.Use(rateLimit)
	}

	protected.HandleFunc("/auth/profile", authHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/auth/validate", authHandler.ValidateToken).Methods("GET")

	protected.HandleFunc("/books", bookHandler.ListBooks).Methods("GET")
	protected.HandleFunc("/books", bookHandler.CreateBook).Methods("POST")
	protected.HandleFunc("/books/{id}", bookHandler.GetBook).Methods("GET")
	protected.HandleFunc("/books/{id}", bookHandler.DeleteBook).Methods("DELETE")
	protected.HandleFunc("/books/{id}/status", bookHandler.UpdateBookStatus).Methods("PATCH")

	protected.HandleFunc("/books/{id}/annotations", annotationHandler.ListForBook).Methods("GET")
	protected.HandleFunc("/books/{id}/annotations", annotationHandler.CreateAnnotation).Methods("POST")
	protected.HandleFunc("/books/{id}/highlights", annotationHandler.UpsertHighlight).Methods("PUT")
	protected.HandleFunc("/books/{id}/bookmarks/{page:[0-9]+}", annotationHandler.UpsertBookmark).Methods("PUT")
	protected.HandleFunc("/highlights/{id}", annotationHandler.Delete(domain.KindHighlight)).Methods("DELETE")
	protected.HandleFunc("/bookmarks/{id}", annotationHandler.Delete(domain.KindBookmark)).Methods("DELETE")
	protected.HandleFunc("/annotations/{id}", annotationHandler.UpdateAnnotation).Methods("PATCH")
	protected.HandleFunc("/annotations/{id}", annotationHandler.Delete(domain.KindAnnotation)).Methods("DELETE")

	protected.HandleFunc("/sessions", sessionHandler.RecordSession).Methods("POST")
	protected.HandleFunc("/sessions/start", sessionHandler.Start).Methods("POST")
	protected.HandleFunc("/sessions/pause", sessionHandler.Pause).Methods("POST")
	protected.HandleFunc("/sessions/resume", sessionHandler.Resume).Methods("POST")
	protected.HandleFunc("/sessions/page", sessionHandler.Turn).Methods("POST")
	protected.HandleFunc("/sessions/end", sessionHandler.End).Methods("POST")

	protected.HandleFunc("/goals", goalHandler.SetGoal).Methods("PUT")
	protected.HandleFunc("/goals/progress", goalHandler.GetGoalProgress).Methods("GET")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"http://localhost:4173", // SvelteKit preview
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			clientIDHeader,
		},
		ExposedHeaders: []string{
			"Link",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
