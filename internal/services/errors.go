package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAcquisition   = errors.New("acquisition error")
	ErrTranscription = errors.New("transcription error")
	ErrDetection     = errors.New("detection error")
	ErrEncoding      = errors.New("encoding error")
	ErrValidation    = errors.New("validation error")
	ErrCorruptOutput = errors.New("corrupt output")
	ErrConfiguration = errors.New("configuration error")
	ErrCanceled      = errors.New("canceled")
)

// Failure kinds reported in terminal events and persisted job state.
const (
	KindAcquisition   = "acquisition"
	KindTranscription = "transcription"
	KindDetection     = "detection"
	KindEncoding      = "encoding"
	KindValidation    = "validation"
	KindCorruptOutput = "corrupt_output"
	KindConfiguration = "configuration"
	KindCanceled      = "canceled"
	KindInternal      = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEncoding
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureDetail is the user-facing summary of a failed job.
type FailureDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Details classifies err by its marker. Context cancellation is reported as
// canceled even when no marker was attached.
func Details(err error) FailureDetail {
	if err == nil {
		return FailureDetail{}
	}
	return FailureDetail{Kind: Kind(err), Message: err.Error()}
}

// Kind returns the failure kind for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrCorruptOutput):
		return KindCorruptOutput
	case errors.Is(err, ErrAcquisition):
		return KindAcquisition
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	case errors.Is(err, ErrDetection):
		return KindDetection
	case errors.Is(err, ErrEncoding):
		return KindEncoding
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// Canceled wraps a context error with the cancellation marker, preserving the cause.
func Canceled(stage string, err error) error {
	return Wrap(ErrCanceled, stage, "", "processing canceled", err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
