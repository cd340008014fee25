package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
)

// ParseQueryInt reads an optional integer parameter bounded by [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a whole number", key).
			WithDetails(map[string]any{"field": key})
	}
	if n < lo || n > hi {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, lo, hi).
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return n, nil
}

// QueryText returns the trimmed value of key capped at maxLen runes.
func QueryText(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// SanitizeString trims input and caps it at maxLen runes. A non-positive
// maxLen disables the cap.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	if runes := []rune(trimmed); len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
