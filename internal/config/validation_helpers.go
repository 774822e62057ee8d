package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

// convertValidationError normalizes validator errors into validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		rule := ve.Tag()
		if ve.Param() != "" {
			rule += "=" + ve.Param()
		}
		msg := fmt.Sprintf("fails the '%s' rule", rule)
		return gailboterrors.NewValidationError(documentKind(ve), fieldName(ve), msg, err)
	}

	return gailboterrors.NewValidationError("", "", err.Error(), err)
}

// documentKind names the document a failure belongs to from the root struct.
func documentKind(fe validator.FieldError) string {
	root, _, _ := strings.Cut(fe.Namespace(), ".")
	switch root {
	case "Settings":
		return gailboterrors.DocumentSettings
	case "PluginConfig":
		return gailboterrors.DocumentPluginConfig
	case "ApplyConfig":
		return gailboterrors.DocumentApplyConfig
	case "Transcript", "Utterance":
		return gailboterrors.DocumentTranscript
	default:
		return ""
	}
}

// fieldName drops the root struct name from the namespace.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
