package usecase

import "errors"

// DomainError is a caller mistake on a synchronous path (4xx).
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is a store or integration failure surfaced to a waiting
// caller (5xx). Background paths log it instead.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func persistenceError(message string, err error) error {
	return &TechnicalError{Code: "DATABASE_ERROR", Message: message, Err: err}
}
