package utils

import (
	"fmt"
	"regexp"
)

var validPriorities = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

// ValidatePriority validates an alert priority level. An empty priority is
// accepted; intake defaults it downstream.
func ValidatePriority(priority string) error {
	if priority == "" {
		return nil
	}
	if !validPriorities[priority] {
		return fmt.Errorf("unknown priority: %s", priority)
	}
	return nil
}

// ValidateCoordinates validates a GPS position reported with an alert
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return fmt.Errorf("latitude out of range: %.6f", latitude)
	}
	if longitude < -180 || longitude > 180 {
		return fmt.Errorf("longitude out of range: %.6f", longitude)
	}
	return nil
}

// SanitizeString removes control characters from free-text input
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
