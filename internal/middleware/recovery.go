package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"deptdocs/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response and logs the stack
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverPanic(w, r, logger)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverPanic(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		// Deliberate abort of a streaming response
		panic(rec)
	}

	attrs := []any{
		"panic", rec,
		"method", r.Method,
		"path", r.URL.Path,
		"stack", string(debug.Stack()),
	}
	if p := httputil.GetPrincipal(r); p != nil {
		attrs = append(attrs, "user_id", p.ID, "department_id", p.DepartmentID)
	}
	logger.Error("panic recovered", attrs...)

	httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
}
