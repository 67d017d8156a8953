package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Shop errors
	ErrItemNotFound = errors.New("shop item not found")
)
