package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"todo-list/internal/controller"
	"todo-list/internal/logger"
	"todo-list/internal/models"
	"todo-list/internal/view"
)

var httpRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todolist_http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"method", "route", "code"},
)

func NewRouter(c *controller.Controller) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	// Страница с формами (работает без JS)
	r.Get("/", pageHandler(c))
	r.Post("/tasks", submitFormHandler(c))
	r.Post("/tasks/clear", clearFormHandler(c))
	r.Post("/tasks/{id}/toggle", idFormHandler(c.Toggle))
	r.Post("/tasks/{id}/delete", idFormHandler(c.Delete))
	r.Post("/filter", filterFormHandler(c))

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", listHandler(c))
		r.Post("/tasks", addTaskHandler(c))
		r.Delete("/tasks", clearHandler(c))
		r.Post("/tasks/{id}/toggle", idHandler(c.Toggle))
		r.Delete("/tasks/{id}", idHandler(c.Delete))
		r.Put("/filter", filterHandler(c))
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		logger.Debug(r.Context(), "HTTP запрос",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func pageHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errMsg := r.URL.Query().Get("error")

		// Загрузка страницы перечитывает хранилище: в него мог писать CLI или бот
		if err := c.Load(r.Context()); err != nil {
			logger.Error(r.Context(), err, "Ошибка загрузки задач")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		err := c.WithView(func(v *view.View) error {
			return v.WriteHTML(&buf, errMsg)
		})
		if err != nil {
			logger.Error(r.Context(), err, "Ошибка рендеринга страницы")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

func submitFormHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := models.CreateTaskRequest{
			Text: r.FormValue("text"),
			Date: r.FormValue("date"),
		}
		if _, err := c.Submit(r.Context(), req); err != nil {
			if errors.Is(err, controller.ErrValidation) {
				redirectWithError(w, r, err.Error())
				return
			}
			logger.Error(r.Context(), err, "Ошибка добавления задачи")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		redirectHome(w, r)
	}
}

func clearFormHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmed := r.FormValue("confirm") == "yes"
		deleted, err := c.DeleteAll(r.Context(), func(string) bool { return confirmed })
		if err != nil {
			logger.Error(r.Context(), err, "Ошибка удаления всех задач")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !deleted {
			redirectWithError(w, r, "Подтвердите удаление всех задач")
			return
		}
		redirectHome(w, r)
	}
}

func idFormHandler(action func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		if err := action(r.Context(), id); err != nil {
			logger.Error(r.Context(), err, "Ошибка операции над задачей", "id", id)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		redirectHome(w, r)
	}
}

func filterFormHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := models.ParseFilter(r.FormValue("mode"))
		if err != nil {
			redirectWithError(w, r, err.Error())
			return
		}
		c.SetFilter(mode)
		redirectHome(w, r)
	}
}

func listHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Load(r.Context()); err != nil {
			logger.Error(r.Context(), err, "Ошибка загрузки задач")
			writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

func addTaskHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateTaskRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректный JSON")
			return
		}
		defer r.Body.Close()

		task, err := c.Submit(r.Context(), req)
		if err != nil {
			if errors.Is(err, controller.ErrValidation) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			logger.Error(r.Context(), err, "Ошибка добавления задачи")
			writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
			return
		}

		writeJSON(w, http.StatusCreated, task)
	}
}

func clearHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmed := r.URL.Query().Get("confirm") == "yes"
		deleted, err := c.DeleteAll(r.Context(), func(string) bool { return confirmed })
		if err != nil {
			logger.Error(r.Context(), err, "Ошибка удаления всех задач")
			writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
			return
		}
		if !deleted {
			writeError(w, http.StatusPreconditionRequired, "нужно подтверждение: ?confirm=yes")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func idHandler(action func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		if err := action(r.Context(), id); err != nil {
			logger.Error(r.Context(), err, "Ошибка операции над задачей", "id", id)
			writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func filterHandler(c *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректный JSON")
			return
		}
		mode, err := models.ParseFilter(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c.SetFilter(mode)
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID задачи должен быть числом")
		return 0, false
	}
	return id, true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
