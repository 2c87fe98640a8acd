package services

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrCapacity   = errors.New("room is full")
	ErrForbidden  = errors.New("forbidden")
	ErrRoomClosed = errors.New("room is closed")
)
