package repository

import "errors"

// Storage errors translated from the dialect so services can branch on them.
var (
	ErrDuplicate  = errors.New("duplicate key")
	ErrReferenced = errors.New("foreign key violation")
	ErrConstraint = errors.New("check constraint violation")
)
