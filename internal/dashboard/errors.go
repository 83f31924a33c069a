package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

var (
	// ErrNotLoaded is returned by actions that need a loaded page.
	ErrNotLoaded = errors.New("dashboard: page not loaded")
	// ErrNothingSelected is returned by GenerateReports on an empty selection.
	ErrNothingSelected = &InputError{Message: "선택된 프로젝트가 없습니다."}
	// ErrReportInProgress is returned while another report generation runs.
	ErrReportInProgress = errors.New("dashboard: report generation already running")
	// ErrSuperseded is returned by LoadPage when a newer load was issued before the response arrived.
	ErrSuperseded = errors.New("dashboard: page load superseded")
)

// InputError is a user input mistake. It is reported as a warning and never reaches the server.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// Class groups errors by how they are surfaced.
type Class string

const (
	ClassNone      Class = ""
	ClassNetwork   Class = "network"
	ClassApp       Class = "application"
	ClassUserInput Class = "user_input"
	ClassInternal  Class = "internal"
)

// Classify maps err to its error class.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	var inputErr *InputError
	var appErr *backend.AppError
	var httpErr *backend.HTTPError
	var transportErr *backend.TransportError

	switch {
	case errors.As(err, &inputErr):
		return ClassUserInput
	case errors.As(err, &appErr):
		return ClassApp
	case errors.As(err, &httpErr), errors.As(err, &transportErr):
		return ClassNetwork
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ClassNetwork
	default:
		return ClassInternal
	}
}

// userMessage returns the server's own message when it sent one, else fallback.
func userMessage(err error, fallback string) string {
	if msg := backend.ServerMessage(err); msg != "" {
		return msg
	}
	return fallback
}
