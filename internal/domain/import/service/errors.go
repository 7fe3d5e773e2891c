package service

import (
	"fmt"
	"strings"
)

// NoRowsError is returned by Load when the source held no usable rows. It
// lists the headers that were detected so a naming mismatch can be spotted.
type NoRowsError struct {
	Headers []string
}

func (e *NoRowsError) Error() string {
	if len(e.Headers) == 0 {
		return "no sales rows found: no headers detected"
	}
	return fmt.Sprintf("no sales rows found; detected headers: %s", strings.Join(e.Headers, ", "))
}
