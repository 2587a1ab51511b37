package web

// errors.go writes every failure as {"detail": ..., "code": ...}.
//
// The flow:
//  1. Handler gets an error from Decode or Submit
//  2. Calls respondError(w, r, err)
//  3. core.Classify picks the status, code and safe message
//  4. The technical error is logged with the request ID
//  5. Validation failures send their field list as detail, everything
//     else sends the safe message

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fineplay-930/apply/internal/application"
	"github.com/fineplay-930/apply/internal/core"
	"github.com/fineplay-930/apply/internal/logging"
)

// ErrorResponse is the JSON body of every error response. Detail is a
// string, or a list of field errors for VAL001.
type ErrorResponse struct {
	Detail any    `json:"detail"`
	Code   string `json:"code"`
}

// respondError logs err and writes its classified response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.Classify(err)

	level := slog.LevelWarn
	if msg.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"code", msg.Code,
		"error", err.Error(),
	)

	resp := ErrorResponse{Detail: msg.Message, Code: msg.Code}
	var verr *application.ValidationError
	if errors.As(err, &verr) {
		resp.Detail = verr.Fields
	}

	writeJSON(w, msg.Status, resp)
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
