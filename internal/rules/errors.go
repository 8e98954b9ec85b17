// Package rules implements the auto-responder core: the authoritative
// in-memory rule store and the message matcher that runs against it.
// This file centralizes the sentinel error values returned by the store so
// that callers (the HTTP admin surface) can translate them consistently.
//
// The matcher deliberately has no error values of its own: a malformed rule
// must degrade to "no match" rather than surface toward the chat listener.
package rules

import "errors"

var (
	// ErrEmptyTrigger is returned when an upsert carries a blank trigger.
	ErrEmptyTrigger = errors.New("trigger is empty")

	// ErrNoResponses is returned when an upsert carries no responses
	// (or only blank ones).
	ErrNoResponses = errors.New("responses are empty")

	// ErrRuleNotFound indicates that no rule exists with the requested id.
	ErrRuleNotFound = errors.New("rule not found")
)
