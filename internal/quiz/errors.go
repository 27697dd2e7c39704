package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized: no session, wrong role, or not the question's owner.
	ErrUnauthorized = errors.New("quiz: unauthorized")
	ErrNotFound     = errors.New("quiz: not found")
)

// ValidationError lists every problem found in an authoring batch. Nothing
// is written when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "quiz: invalid batch: " + strings.Join(e.Problems, "; ")
}

// StorageError wraps a persistence failure. Op names the failed step.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("quiz: storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
