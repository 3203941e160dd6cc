package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a board or image id that no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrInvalidMergeTarget marks a merge into the source board or one of its descendants.
	ErrInvalidMergeTarget = errors.New("invalid merge target")
	// ErrCreateFailed marks a board creation the store rejected.
	ErrCreateFailed = errors.New("create failed")
	// ErrTransport marks any failed call into an external collaborator.
	ErrTransport = errors.New("transport error")
	// ErrValidation marks malformed input (bad suggestion payloads, empty names).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable settings.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the first sentinel err matches, or "error".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidMergeTarget):
		return "invalid_merge_target"
	case errors.Is(err, ErrCreateFailed):
		return "create_failed"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
