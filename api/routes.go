package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", app.healthCheckHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /static/", http.FileServerFS(assets))

	web := func(h http.HandlerFunc) http.HandlerFunc {
		return app.requireWebUser(app.verifyCSRF(h))
	}
	guest := func(h http.HandlerFunc) http.HandlerFunc {
		return app.redirectIfAuthenticated(app.verifyCSRF(h))
	}

	mux.HandleFunc("GET /{$}", app.homeHandler)
	mux.HandleFunc("GET /login", guest(app.loginFormHandler))
	mux.HandleFunc("POST /login", guest(app.loginHandler))
	mux.HandleFunc("GET /register", guest(app.registerFormHandler))
	mux.HandleFunc("POST /register", guest(app.registerHandler))
	mux.HandleFunc("POST /logout", web(app.logoutHandler))

	mux.HandleFunc("GET /tasks", web(app.tasksIndexHandler))
	mux.HandleFunc("GET /tasks/create", web(app.createTaskFormHandler))
	mux.HandleFunc("POST /tasks", web(app.storeTaskHandler))
	mux.HandleFunc("GET /tasks/{id}/edit", web(app.editTaskFormHandler))
	mux.HandleFunc("PATCH /tasks/{id}", web(app.updateTaskHandler))
	mux.HandleFunc("DELETE /tasks/{id}", web(app.destroyTaskHandler))

	mux.HandleFunc("POST /api/generate_token", app.generateTokenHandler)
	mux.HandleFunc("DELETE /api/tokens/current", app.requireAPIUser(app.revokeTokenHandler))
	mux.HandleFunc("GET /api/tasks", app.requireAPIUser(app.listTasksAPIHandler))
	mux.HandleFunc("POST /api/tasks", app.requireAPIUser(app.createTaskAPIHandler))
	mux.HandleFunc("GET /api/tasks/{id}", app.requireAPIUser(app.showTaskAPIHandler))
	mux.HandleFunc("PUT /api/tasks/{id}", app.requireAPIUser(app.updateTaskAPIHandler))
	mux.HandleFunc("PATCH /api/tasks/{id}", app.requireAPIUser(app.updateTaskAPIHandler))
	mux.HandleFunc("DELETE /api/tasks/{id}", app.requireAPIUser(app.deleteTaskAPIHandler))

	var handler http.Handler = methodOverride(mux)
	handler = app.enableCORS(handler)
	if app.config.Limiter.Enabled {
		handler = app.rateLimit(handler)
	}
	handler = securityHeaders(handler)
	handler = metrics(handler)
	handler = app.logRequests(handler)
	handler = app.recoverPanic(handler)
	return requestID(handler)
}
