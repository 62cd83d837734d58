// Package apperr holds the sentinel errors shared by the store and the console engine.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidName    = errors.New("invalid document name")
	ErrInvalidFolder  = errors.New("invalid folder name")
	ErrInvalidTag     = errors.New("invalid tag")
	ErrProtected      = errors.New("default folder cannot be removed")
	ErrInvalidPayload = errors.New("invalid import payload")
	ErrValidation     = errors.New("kdoc validation failed")

	// ErrBusy is returned when a save is requested while another one is in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrImportInProgress blocks mutating entry points during a bulk import.
	ErrImportInProgress = errors.New("import in progress")

	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrTooLarge         = errors.New("payload too large")
	ErrUnknownTemplate  = errors.New("unknown template")
)
