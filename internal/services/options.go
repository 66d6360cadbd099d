package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mybiom/biom/internal/model"
)

const (
	defaultStoreTimeout = 5 * time.Second
	maxUserIDLen        = 128
)

// Options carries the settings shared by every service.
type Options struct {
	// StoreTimeout bounds each store call; expiry surfaces as StorageError.
	StoreTimeout time.Duration
	// Location fixes the calendar used to bucket timestamps into dates.
	Location          *time.Location
	DefaultWindowDays int
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = defaultStoreTimeout
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DefaultWindowDays <= 0 {
		o.DefaultWindowDays = 100
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// storeCall runs fn under the store timeout and maps unexpected failures to StorageError.
func storeCall[T any](ctx context.Context, o Options, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, o.StoreTimeout)
	defer cancel()
	out, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, classify(op, err)
	}
	return out, nil
}

func classify(op string, err error) error {
	var batch *model.BatchError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &batch),
		model.IsValidationError(err),
		model.IsNotFoundError(err),
		model.IsConflictError(err),
		model.IsStorageError(err):
		return err
	default:
		return model.NewStorageError(op, err)
	}
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return model.NewValidationError("userId", "required")
	}
	if len(userID) > maxUserIDLen {
		return model.NewValidationError("userId", fmt.Sprintf("must be at most %d bytes", maxUserIDLen))
	}
	if strings.IndexFunc(userID, unicode.IsControl) >= 0 {
		return model.NewValidationError("userId", "must not contain control characters")
	}
	return nil
}
