package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/signage-workspace/internal/canteen"
	"github.com/pdiddy/signage-workspace/internal/workspace"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

var errServiceDisabled = errors.New("service not configured")

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": types.Truncate(msg)})
}

// fail writes err with the status it maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, workspace.ErrTeamNotFound),
		errors.Is(err, workspace.ErrNoTeamSelected):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrPathTraversal),
		errors.Is(err, workspace.ErrInvalidName),
		errors.Is(err, workspace.ErrNotDocumentFolder),
		errors.Is(err, workspace.ErrInvalidUpload),
		errors.Is(err, canteen.ErrNoValidURLs):
		return http.StatusBadRequest
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, canteen.ErrDownload):
		return http.StatusBadGateway
	case errors.Is(err, canteen.ErrPDFConversion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errServiceDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// outcomeStatus maps a conversion outcome to an HTTP status.
func outcomeStatus(o types.ConversionOutcome) int {
	switch o.Kind {
	case types.OutcomeSuccess:
		return http.StatusOK
	case types.OutcomeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
