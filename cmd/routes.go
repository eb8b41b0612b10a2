package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (app *Config) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Use(middleware.Heartbeat("/ping"))

	timerHandler := NewTimerHandler(app.Controller, app.Log)
	settingsHandler := NewSettingsHandler(app.Controller, app.Log)
	wsHandler := NewWSHandler(app.Controller, app.Log)

	// Timer controls
	mux.Get("/timer/state", timerHandler.GetState)
	mux.Post("/timer/start", timerHandler.Start)
	mux.Post("/timer/pause", timerHandler.Pause)
	mux.Post("/timer/resume", timerHandler.Resume)
	mux.Post("/timer/stop", timerHandler.Stop)
	mux.Post("/timer/reset", timerHandler.Reset)
	mux.Post("/timer/mode", timerHandler.SwitchMode)

	// Settings and transitions
	mux.Get("/settings/durations", settingsHandler.GetDurations)
	mux.Put("/settings/durations", settingsHandler.PutDurations)
	mux.Get("/transitions", settingsHandler.GetTransitions)
	mux.Put("/transitions/{from_mode}", settingsHandler.PutTransition)

	// Recovery history and statistics
	mux.Get("/state/history", settingsHandler.GetHistory)
	mux.Get("/stats", settingsHandler.GetStats)

	// Live state stream for UI refresh
	mux.Get("/ws", wsHandler.Stream)

	return mux
}
