package domain

import "errors"

var (
	// ErrGameNotFound is returned when a game id does not map to a live game.
	ErrGameNotFound = errors.New("game not found")
	// ErrPackNotFound indicates the question pack could not be loaded.
	ErrPackNotFound = errors.New("question pack not found")
	// ErrGameIDMismatch indicates an action addressed to a different game.
	// This is a caller bug, not a recoverable user-facing condition.
	ErrGameIDMismatch = errors.New("action game id does not match game")
	// ErrMissingTimestamp indicates an action dispatched without a timestamp.
	ErrMissingTimestamp = errors.New("action is missing a timestamp")
	// ErrUnknownAction indicates an action kind the dispatcher does not handle.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrGamePaused rejects gameplay actions while the game is paused.
	ErrGamePaused = errors.New("game is paused")
	// ErrManagerDestroyed rejects dispatch after the manager was torn down.
	ErrManagerDestroyed = errors.New("game manager has been destroyed")
)
