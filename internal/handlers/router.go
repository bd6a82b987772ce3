package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter sets up and returns the HTTP router.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)

	// Everything below requires a valid session.
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/", h.Index)
		r.Get("/logout", h.Logout)
		r.Get("/add", h.AddExpenseForm)
		r.Post("/add", h.AddExpense)
		r.Get("/edit/{id}", h.EditExpenseForm)
		r.Post("/edit/{id}", h.UpdateExpense)
		r.Post("/delete/{id}", h.DeleteExpense)
		r.Get("/settings", h.SettingsForm)
		r.Post("/settings", h.SaveSettings)
		r.Get("/export", h.ExportCSV)
	})

	return r
}
