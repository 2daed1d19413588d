package thematic

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrInvalidInput = errors.New("invalid input network")
	ErrAlignment    = errors.New("network and partition share no terms")
	ErrEmptyResult  = errors.New("no clusters survive the frequency threshold")
)

// InvalidInputError reports a malformed, non-square or negative network.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidInput, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
func (e *InvalidInputError) Unwrap() error        { return e.Err }

// AlignmentError reports an empty overlap between network and partition terms.
type AlignmentError struct {
	NetworkTerms   int
	PartitionTerms int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s (%d network terms, %d partition terms)", ErrAlignment, e.NetworkTerms, e.PartitionTerms)
}

func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// EmptyResultError reports that the minfreq filter removed every cluster.
type EmptyResultError struct {
	MinFreq  int
	Clusters int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s (minfreq=%d, %d clusters before filtering)", ErrEmptyResult, e.MinFreq, e.Clusters)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

func invalidInput(reason string, err error) error {
	return &InvalidInputError{Reason: reason, Err: err}
}

// Hint returns a user-facing explanation for the pipeline's error kinds, or
// "" for any other error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResult):
		return "not enough co-occurring terms meet the frequency threshold; lower minfreq or increase n"
	case errors.Is(err, ErrAlignment):
		return "the clustered terms do not match the network terms; check that both come from the same field"
	case errors.Is(err, ErrInvalidInput):
		return "the co-occurrence network must be a square, symmetric matrix of non-negative counts"
	default:
		return ""
	}
}
