// Package errors provides error wrapping utilities for context-aware error messages.
package errors

import "fmt"

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Mark tags err with a sentinel kind so callers can classify it with errors.Is
// while the original cause stays in the chain.
// If err is nil, the sentinel itself is returned.
func Mark(err, kind error) error {
	if err == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, err)
}
