package models

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/desertthunder/muziek/internal/shared"
)

var videoIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// ValidationError describes a rejected user input. It matches [shared.ErrInvalidInput].
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

// ParseVideoID extracts the video identifier from a watch URL or returns a bare identifier unchanged.
//
// References without a host are taken literally; otherwise the "v" query parameter is used.
func ParseVideoID(ref string) (string, error) {
	id := ref

	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		id = u.Query().Get("v")
	}

	if !videoIDPattern.MatchString(id) {
		return "", &ValidationError{Field: "video reference", Value: ref}
	}
	return id, nil
}
