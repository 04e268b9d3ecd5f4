package refresh

import (
	"errors"
	"fmt"
)

var (
	ErrExternalSourceUnavailable = errors.New("external data source unavailable")
	ErrPersistence               = errors.New("failed to persist refreshed data")
	ErrRefreshInProgress         = errors.New("a refresh is already in progress")
)

const (
	SourceCountries = "country catalog"
	SourceRates     = "exchange rates"
)

// SourceUnavailableError reports which upstream failed and why.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrExternalSourceUnavailable
}

// PersistenceError wraps a failed commit. The store is unchanged when it is returned.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("commit failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
