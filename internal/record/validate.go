package record

import (
	"strconv"
	"strings"
)

// Per-keystroke field checks. These produce inline helper text only; an
// invalid value can still be saved, validation never gates the save action.

func ValidateInteger(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return "whole numbers only"
	}
	return ""
}

func ValidatePercent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "must be a number"
	}
	if f < 0 || f > 100 {
		return "must be between 0 and 100"
	}
	return ""
}
