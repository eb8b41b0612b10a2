package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sharptimer/internal/logger"
	"sharptimer/internal/timer"
)

// SettingsHandler serves durations, transition rules, backup history and
// statistics.
type SettingsHandler struct {
	controller *timer.Controller
	log        *logger.Logger
}

func NewSettingsHandler(controller *timer.Controller, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{controller: controller, log: log}
}

type durationsResponse struct {
	Work        int        `json:"work"`
	RestEyes    int        `json:"rest_eyes"`
	LongRest    int        `json:"long_rest"`
	CurrentMode timer.Mode `json:"current_mode"`
}

func (h *SettingsHandler) GetDurations(w http.ResponseWriter, r *http.Request) {
	states := h.controller.States()
	writeJSON(w, http.StatusOK, durationsResponse{
		Work:        states.Duration(timer.ModeWork),
		RestEyes:    states.Duration(timer.ModeRestEyes),
		LongRest:    states.Duration(timer.ModeLongRest),
		CurrentMode: states.CurrentMode(),
	})
}

type durationsRequest struct {
	Work     int    `json:"work"`
	RestEyes int    `json:"rest_eyes"`
	LongRest int    `json:"long_rest"`
	Text     string `json:"text"`
}

// PutDurations updates per-mode durations. It accepts either structured
// fields or the free-form settings dialog text under "text". Validation
// errors name the offending field and its valid range.
func (h *SettingsHandler) PutDurations(w http.ResponseWriter, r *http.Request) {
	req := durationsRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	values := make(map[timer.Mode]int)
	if req.Text != "" {
		parsed, err := timer.ParseDurationsText(req.Text)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		values = parsed
	} else {
		if req.Work > 0 {
			values[timer.ModeWork] = req.Work
		}
		if req.RestEyes > 0 {
			values[timer.ModeRestEyes] = req.RestEyes
		}
		if req.LongRest > 0 {
			values[timer.ModeLongRest] = req.LongRest
		}
	}
	if len(values) == 0 {
		errorJSON(w, http.StatusBadRequest, "no durations provided")
		return
	}

	if err := h.controller.States().SetDurations(values); err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	okJSON(w, "durations updated")
}

func (h *SettingsHandler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Transitions().All())
}

type transitionRequest struct {
	Enabled           *bool   `json:"enabled"`
	TargetState       *string `json:"target_state"`
	TransitionDelayMS *int    `json:"transition_delay_ms"`
}

// PutTransition updates the auto-switch rule for one source mode. Each
// provided field is validated; changes take effect on the next completion.
func (h *SettingsHandler) PutTransition(w http.ResponseWriter, r *http.Request) {
	from, err := timer.ParseMode(chi.URLParam(r, "from_mode"))
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	req := transitionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	transitions := h.controller.Transitions()
	if req.Enabled != nil {
		if !transitions.SetEnabled(from, *req.Enabled) {
			errorJSON(w, http.StatusBadRequest, "no transition configured for mode "+string(from))
			return
		}
	}
	if req.TargetState != nil {
		if !transitions.SetTargetState(from, timer.TargetState(*req.TargetState)) {
			errorJSON(w, http.StatusBadRequest, "target_state must be \"paused\" or \"running\"")
			return
		}
	}
	if req.TransitionDelayMS != nil {
		if !transitions.SetDelay(from, *req.TransitionDelayMS) {
			errorJSON(w, http.StatusBadRequest, "transition_delay_ms must be between 0 and 5000")
			return
		}
	}

	cfg, _ := transitions.Config(from)
	writeJSON(w, http.StatusOK, cfg)
}

func (h *SettingsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errorJSON(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.controller.States().StateHistory(limit))
}

type statsResponse struct {
	Counts       map[timer.Mode]int    `json:"counts"`
	TotalSeconds map[timer.Mode]int    `json:"total_seconds"`
	Recent       []timer.SessionRecord `json:"recent"`
}

func (h *SettingsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.controller.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		Counts:       stats.Counts(),
		TotalSeconds: stats.TotalSeconds(),
		Recent:       stats.Recent(10),
	})
}
