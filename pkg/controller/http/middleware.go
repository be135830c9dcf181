package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"github.com/m-mizutani/pdfdesk/pkg/utils/errutil"
)

type ctxKey int

const (
	ctxKeySession ctxKey = iota
	ctxKeyTool
)

// LoggingMiddleware returns a middleware that logs HTTP requests. The request
// context carries a logger tagged with the request ID.
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			logger := ctxlog.From(ctx).With("request_id", reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctxlog.With(r.Context(), logger)))
		})
	}
}

// SessionMiddleware resolves the browser session from the cookie, issuing a
// new one when it is missing or invalid. The cookie is re-issued on every
// request so the session expires only after it has been idle.
func SessionMiddleware(codec *sessionCodec) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sid, err := codec.Read(r)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					ctxlog.From(ctx).Debug("Discarding invalid session cookie", "error", err)
				}
				sid = types.NewSessionID()
			}

			cookie, err := codec.Cookie(sid)
			if err != nil {
				errutil.Handle(ctx, "failed to issue session cookie", err)
				writeError(w, r, goerr.New("session is not available"), http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, cookie)

			ctx = context.WithValue(ctx, ctxKeySession, sid)
			ctx = ctxlog.With(ctx, ctxlog.From(ctx).With("session_id", sid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ToolMiddleware resolves the {tool} URL parameter. Unknown tools are 404.
func ToolMiddleware(catalog *model.Catalog) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tool, err := types.ParseTool(chi.URLParam(r, "tool"))
			if err != nil {
				http.NotFound(w, r)
				return
			}
			if _, err := catalog.Lookup(tool); err != nil {
				http.NotFound(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyTool, tool)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(ctx context.Context) types.SessionID {
	sid, _ := ctx.Value(ctxKeySession).(types.SessionID)
	return sid
}

func toolFrom(ctx context.Context) types.Tool {
	tool, _ := ctx.Value(ctxKeyTool).(types.Tool)
	return tool
}

// writeError writes an error response
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode error response", "error", err)
	}
}

// writeJSON writes v with status 200
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// redirect replaces the current history entry with target
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusSeeOther)
}
