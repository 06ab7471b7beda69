package protocol

import (
	"errors"

	"baseplan.ai/internal/sim/base"
)

const (
	ErrNotFound    = "E_NOT_FOUND"
	ErrNotOwner    = "E_NOT_OWNER"
	ErrInvalidArgs = "E_INVALID_ARGS"
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrNotFound:    {},
	ErrNotOwner:    {},
	ErrInvalidArgs: {},
	ErrBadRequest:  {},
	ErrInternal:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a planner error to its wire code. nil maps to "".
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, base.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, base.ErrNotOwner):
		return ErrNotOwner
	case errors.Is(err, base.ErrInvalidArgument):
		return ErrInvalidArgs
	default:
		return ErrInternal
	}
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewErrorMsg(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
