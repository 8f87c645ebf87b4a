package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"firelog/backend/internal/config"
	"firelog/backend/internal/domain/export"
	"firelog/backend/internal/domain/tasklog"
	"firelog/backend/internal/logger"
	"firelog/backend/internal/middleware"
)

type RouterDeps struct {
	Cfg      config.Config
	Verifier middleware.TokenVerifier
	Tasks    *tasklog.Service
	Exports  *export.Service
	Log      logger.Logger
}

type putTaskReq struct {
	Fields map[string]any `json:"fields"`
	Mode   string         `json:"mode,omitempty"`
}

type putLogReq struct {
	Units *float64 `json:"units,omitempty"`
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	r := chi.NewRouter()

	r.Use(middleware.CORS(d.Cfg.AllowedOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, 200, map[string]any{
			"ok":    d.Tasks.IsStoreInitialized(),
			"store": d.Cfg.StoreBackend,
			"ts":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Protected routes
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.WithAuth(d.Verifier))

		pr.Route("/v1/me", func(mr chi.Router) {
			mr.Get("/", func(w http.ResponseWriter, r *http.Request) {
				au, _ := middleware.GetAuthUser(r.Context())
				WriteJSON(w, 200, map[string]any{
					"uid":    au.UID,
					"email":  au.Email,
					"admin":  middleware.IsAdmin(au.Claims),
					"claims": au.Claims,
				})
			})
			scopeRoutes(mr, d, func(r *http.Request) tasklog.Scope {
				au, _ := middleware.GetAuthUser(r.Context())
				return tasklog.User(au.UID)
			})
		})

		pr.Route("/v1/global", func(gr chi.Router) {
			gr.Use(middleware.RequireAdmin)
			scopeRoutes(gr, d, func(*http.Request) tasklog.Scope { return tasklog.Global() })
		})
	})

	return r
}

// scopeRoutes mounts the task/log routes once per scope.
func scopeRoutes(r chi.Router, d RouterDeps, scopeOf func(*http.Request) tasklog.Scope) {
	r.Put("/tasks/{taskId}", func(w http.ResponseWriter, r *http.Request) {
		var in putTaskReq
		if err := readJSON(r, &in, false); err != nil {
			Fail(w, 400, "invalid json")
			return
		}
		mode, err := tasklog.ParseWriteMode(in.Mode)
		if err != nil {
			status, msg := mapTasklogError(err)
			Fail(w, status, msg)
			return
		}

		taskID, err := pathParam(r, "taskId")
		if err != nil {
			Fail(w, 400, "invalid task id")
			return
		}

		if err := d.Tasks.UpsertTask(r.Context(), scopeOf(r), taskID, in.Fields, mode); err != nil {
			status, msg := mapTasklogError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"ok": true})
	})

	r.Get("/tasks", func(w http.ResponseWriter, r *http.Request) {
		tasks, err := d.Tasks.ListAllTasks(r.Context(), scopeOf(r))
		if err != nil {
			status, msg := mapTasklogError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"tasks": tasks})
	})

	r.Put("/tasks/{taskId}/logs/{logId}", func(w http.ResponseWriter, r *http.Request) {
		var in putLogReq
		if err := readJSON(r, &in, true); err != nil {
			Fail(w, 400, "invalid json")
			return
		}
		taskID, err := pathParam(r, "taskId")
		if err != nil {
			Fail(w, 400, "invalid task id")
			return
		}
		logID, err := pathParam(r, "logId")
		if err != nil {
			Fail(w, 400, "invalid log id")
			return
		}

		if in.Units != nil {
			err = d.Tasks.AppendLogUnits(r.Context(), scopeOf(r), taskID, logID, *in.Units)
		} else {
			err = d.Tasks.AppendLog(r.Context(), scopeOf(r), taskID, logID)
		}
		if err != nil {
			status, msg := mapTasklogError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"ok": true})
	})

	r.Get("/tasks/{taskId}/logs", func(w http.ResponseWriter, r *http.Request) {
		taskID, err := pathParam(r, "taskId")
		if err != nil {
			Fail(w, 400, "invalid task id")
			return
		}
		logs, err := d.Tasks.LoadLogsForTask(r.Context(), scopeOf(r), taskID)
		if err != nil {
			status, msg := mapTasklogError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"logs": logs})
	})

	r.Get("/logs", func(w http.ResponseWriter, r *http.Request) {
		logs, err := d.Tasks.LoadAllLogs(r.Context(), scopeOf(r))
		if err != nil {
			status, msg := mapTasklogError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 200, map[string]any{"logs": logs})
	})

	r.Post("/exports", func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Exports.Export(r.Context(), scopeOf(r))
		if err != nil {
			status, msg := mapExportError(err)
			Fail(w, status, msg)
			return
		}
		WriteJSON(w, 201, res)
	})
}

// pathParam returns the decoded route param. chi matches on RawPath when the
// request carries escapes such as %2F, leaving the param escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

func mapTasklogError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case tasklog.IsErrBadRequest(err):
		return 400, err.Error()
	case tasklog.IsErrStoreUninitialized(err):
		return 503, err.Error()
	case tasklog.IsErrStoreRead(err), tasklog.IsErrStoreWrite(err):
		return storeStatus(err), err.Error()
	default:
		return 500, err.Error()
	}
}

// storeStatus maps the gRPC status carried by a Firestore error.
func storeStatus(err error) int {
	st, ok := status.FromError(err)
	if !ok {
		return 500
	}
	switch st.Code() {
	case codes.PermissionDenied:
		return 403
	case codes.Unauthenticated:
		return 401
	case codes.NotFound:
		return 404
	case codes.InvalidArgument:
		return 400
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return 503
	default:
		return 500
	}
}

func mapExportError(err error) (int, string) {
	if export.IsErrNotConfigured(err) {
		return 501, err.Error()
	}
	return mapTasklogError(err)
}
