package application

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"graphvault/internal/domain"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		// Format field name with spaces for error message (e.g., "nodeID" -> "node ID")
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "nodeID" -> "node ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"nodeID":  "node ID",
		"fromID":  "source ID",
		"toID":    "destination ID",
		"content": "content",
		"query":   "query",
		"weight":  "weight",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}

	return fieldName
}

// ParseIDArg parses a node ID given as text for the named field.
// Returns an InvalidIDError for negative IDs and a ValidationError otherwise.
func ParseIDArg(fieldName, value string) (int64, error) {
	if err := ValidateRequired(fieldName, value); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("invalid %s: %s", formatFieldName(fieldName), value),
		}
	}
	if err := domain.ValidateID(id); err != nil {
		return 0, err
	}
	return id, nil
}

// ValidateID checks a numeric node ID for the named field
func ValidateID(fieldName string, id int64) error {
	if err := domain.ValidateID(id); err != nil {
		return fmt.Errorf("%s: %w", formatFieldName(fieldName), err)
	}
	return nil
}

// ParseWeight parses a finite edge weight
func ParseWeight(value string) (float64, error) {
	w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, &ValidationError{
			Field:   "weight",
			Message: fmt.Sprintf("weight must be a finite number, got: %s", value),
		}
	}
	return w, nil
}

// ParseProperties parses key=value pairs into properties. Values spelled
// true or false become booleans, finite numbers become numbers, anything
// else stays a string.
func ParseProperties(pairs []string) (Properties, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(Properties, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &ValidationError{
				Field:   "property",
				Message: fmt.Sprintf("expected key=value, got: %s", pair),
			}
		}
		props[key] = parseValue(raw)
	}
	return props, nil
}

func parseValue(raw string) domain.Value {
	switch raw {
	case "true":
		return domain.Bool(true)
	case "false":
		return domain.Bool(false)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return domain.Number(n)
	}
	return domain.String(raw)
}
