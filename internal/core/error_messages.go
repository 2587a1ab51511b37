// Package core orchestrates application submissions.
//
// # Error Codes Reference
//
// Every failure a client can see carries a code for support reference.
// Operators can grep the server log for the code and the request ID to
// find the technical error behind it.
//
// # Validation Errors (VAL)
//
//	VAL001 - Request validation failed (422)
//	         Trigger: *application.ValidationError
//	         Detail: one entry per offending field
//
// # Application Errors (APP)
//
//	APP001 - Roster too small (400)
//	         Trigger: application.ErrRosterTooSmall
//	         Detail: "at least 11 starting players required"
//
// # Submission Errors (SUB)
//
//	SUB001 - Too many submissions in progress (503)
//	         Trigger: ErrTooManySubmissions
//
// # Configuration Errors (CFG)
//
//	CFG001 - Email delivery is not configured (500)
//	         Trigger: notify.ErrMissingAPIKey
//
// # Delivery Errors (MAIL)
//
//	MAIL001 - Email provider rejected the message (500)
//	          Trigger: *notify.DeliveryError
//
// # Export Errors (EXP)
//
//	EXP001 - Export could not be generated (500)
//	         Trigger: ErrExportFailed
//
// # Rate Limiting (RATE)
//
//	RATE001 - Too many requests (429)
//	          Written by the web rate limiter, never returned by Submit
//
// # Default Error (ERR000)
//
//	ERR000 - An unexpected error occurred (500)
//
// Provider response bodies and API keys never reach the client. The
// original error is logged by the web layer.
package core

import (
	"errors"
	"net/http"

	"github.com/fineplay-930/apply/internal/application"
	"github.com/fineplay-930/apply/internal/notify"
)

// ErrExportFailed wraps any failure to build the attachment.
var ErrExportFailed = errors.New("export failed")

// UserMessage is the client-facing side of an error.
type UserMessage struct {
	Status  int    // HTTP status code
	Code    string // Error code for support reference
	Message string // Safe message for the client
}

// errorRule maps an error class to its user message.
type errorRule struct {
	match func(error) bool
	msg   UserMessage
}

// errorRules are checked in order; the first match wins.
var errorRules = []errorRule{
	{
		match: func(err error) bool {
			var verr *application.ValidationError
			return errors.As(err, &verr)
		},
		msg: UserMessage{
			Status:  http.StatusUnprocessableEntity,
			Code:    "VAL001",
			Message: "Request validation failed",
		},
	},
	{
		match: is(application.ErrRosterTooSmall),
		msg: UserMessage{
			Status:  http.StatusBadRequest,
			Code:    "APP001",
			Message: application.ErrRosterTooSmall.Error(),
		},
	},
	{
		match: is(ErrTooManySubmissions),
		msg: UserMessage{
			Status:  http.StatusServiceUnavailable,
			Code:    "SUB001",
			Message: "Too many submissions in progress, please try again shortly",
		},
	},
	{
		match: is(notify.ErrMissingAPIKey),
		msg: UserMessage{
			Status:  http.StatusInternalServerError,
			Code:    "CFG001",
			Message: "Email delivery is not configured",
		},
	},
	{
		match: func(err error) bool {
			var derr *notify.DeliveryError
			return errors.As(err, &derr)
		},
		msg: UserMessage{
			Status:  http.StatusInternalServerError,
			Code:    "MAIL001",
			Message: "The email provider rejected the message",
		},
	},
	{
		match: is(ErrExportFailed),
		msg: UserMessage{
			Status:  http.StatusInternalServerError,
			Code:    "EXP001",
			Message: "The application export could not be generated",
		},
	},
}

// defaultMessage is returned when no rule matches (ERR000).
var defaultMessage = UserMessage{
	Status:  http.StatusInternalServerError,
	Code:    "ERR000",
	Message: "An unexpected error occurred",
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// Classify converts an error returned by Decode or Submit into its user
// message. A nil error returns the zero UserMessage.
func Classify(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, rule := range errorRules {
		if rule.match(err) {
			return rule.msg
		}
	}

	return defaultMessage
}
