package handler

import (
	"net/http"

	"reader-annotations/internal/domain"
)

type GoalHandler struct {
	goalService domain.GoalService
	logger      domain.Logger
}

func NewGoalHandler(goalService domain.GoalService, logger domain.Logger) *GoalHandler {
	return &GoalHandler{goalService: goalService, logger: logger}
}

// GetGoalProgress handles GET /goals/progress
func (h *GoalHandler) GetGoalProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	goals, err := h.goalService.GetGoalProgress(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to load goals", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"goals": goals})
}

type setGoalRequest struct {
	Type   domain.GoalType   `json:"goal_type"`
	Period domain.GoalPeriod `json:"period"`
	Target int               `json:"target"`
}

// SetGoal handles PUT /goals
func (h *GoalHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req setGoalRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	goal, err := h.goalService.SetGoal(r.Context(), user.ID, req.Type, req.Period, req.Target)
	if err != nil {
		writeAppError(w, h.logger, err, "Failed to set goal", "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}
