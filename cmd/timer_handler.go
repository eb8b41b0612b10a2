package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"sharptimer/internal/logger"
	"sharptimer/internal/timer"
)

// TimerHandler serves the countdown control endpoints.
type TimerHandler struct {
	controller *timer.Controller
	log        *logger.Logger
}

func NewTimerHandler(controller *timer.Controller, log *logger.Logger) *TimerHandler {
	return &TimerHandler{controller: controller, log: log}
}

func (h *TimerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

type startRequest struct {
	Minutes int `json:"minutes"`
}

// Start begins a countdown, either for the configured duration of the
// current mode or for an explicit number of minutes in the request body.
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	req := startRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(w, http.StatusBadRequest, "request body must be JSON like {\"minutes\": 25}")
		return
	}

	var err error
	if req.Minutes > 0 {
		err = h.controller.StartTimerMinutes(req.Minutes)
	} else {
		err = h.controller.StartTimer()
	}
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.PauseTimer(); err != nil {
		errorJSON(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.ResumeTimer(); err != nil {
		errorJSON(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.controller.StopTimer()
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

func (h *TimerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.controller.ResetTimer()
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *TimerHandler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	req := modeRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "request body must be JSON like {\"mode\": \"work\"}")
		return
	}
	mode, err := timer.ParseMode(req.Mode)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.controller.SwitchMode(mode); err != nil {
		errorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}
