// Package chat implements the public conversational turn pipeline: the
// per-message orchestrator that coordinates quota, persistence,
// retrieval, lead capture, the model call, and notifications.
package chat

import (
	"errors"
)

// Turn error taxonomy. Load-bearing stages (bot lookup, usage gate,
// model call) surface these; best-effort stages log and continue.
var (
	// ErrBotNotFound means the bot does not exist.
	ErrBotNotFound = errors.New("bot not found")

	// ErrBotInactive means the bot is disabled or soft-deleted.
	ErrBotInactive = errors.New("bot is not active")

	// ErrQuotaExceeded means the tenant's monthly quota is exhausted.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrRateLimited means the downstream model throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrService means a load-bearing downstream dependency failed.
	ErrService = errors.New("service error")

	// ErrValidation means the request body is malformed.
	ErrValidation = errors.New("invalid request")
)
