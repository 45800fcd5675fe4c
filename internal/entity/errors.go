package entity

import "github.com/rotisserie/eris"

var (
	ErrNotFound        = eris.New("not found")
	ErrMissingIdentity = eris.New("lead has neither email nor phone")
	// ErrConflict is returned when a concurrent writer created the same lead.
	ErrConflict = eris.New("lead already exists")
)
