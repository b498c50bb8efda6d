package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyField is returned when a required string field is empty.
var ErrEmptyField = errors.New("field cannot be empty")

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}
	return ctx.Err()
}

func validateString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w", fieldName, ErrEmptyField)
	}
	return nil
}
