package oxidb

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failure reported by the server in an ok=false reply.
type Error struct {
	Cmd string
	Msg string
}

func (e *Error) Error() string {
	if e.Cmd == "" {
		return fmt.Sprintf("oxidb: %s", e.Msg)
	}
	return fmt.Sprintf("oxidb %s: %s", e.Cmd, e.Msg)
}

// IsUniqueViolation reports whether err is a server-side unique index error.
func IsUniqueViolation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	msg := strings.ToLower(e.Msg)
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
