package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAdmissionRejected = errors.New("admission rejected")
	ErrDownloadFault     = errors.New("download fault")
	ErrPostProcessing    = errors.New("post-processing fault")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
)

// Kind names the error class carried by a wrapped error.
type Kind string

const (
	KindAdmission     Kind = "admission"
	KindDownload      Kind = "download"
	KindPostProcess   Kind = "postprocess"
	KindExternalTool  Kind = "external_tool"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindTimeout       Kind = "timeout"
	KindUnknown       Kind = "unknown"
)

// Wrap builds an error message that includes scope context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, scope, operation, message string, err error) error {
	detail := buildDetail(scope, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the flattened view of an error used by logs and IPC replies.
type ErrorDetails struct {
	Kind    Kind
	Message string
	Cause   error
}

// Details classifies err against the sentinel markers.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: KindUnknown, Message: strings.TrimSpace(err.Error()), Cause: errors.Unwrap(err)}
	switch {
	case errors.Is(err, ErrAdmissionRejected):
		details.Kind = KindAdmission
	case errors.Is(err, ErrDownloadFault):
		details.Kind = KindDownload
	case errors.Is(err, ErrPostProcessing):
		details.Kind = KindPostProcess
	case errors.Is(err, ErrExternalTool):
		details.Kind = KindExternalTool
	case errors.Is(err, ErrValidation):
		details.Kind = KindValidation
	case errors.Is(err, ErrConfiguration):
		details.Kind = KindConfiguration
	case errors.Is(err, ErrNotFound):
		details.Kind = KindNotFound
	case errors.Is(err, ErrTimeout):
		details.Kind = KindTimeout
	}
	return details
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
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
