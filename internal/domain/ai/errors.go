package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrPromptNotFound indicates no system prompt is registered for a module and pathway.
var ErrPromptNotFound = errors.New("system prompt not found")

// ErrEmptyCompletion indicates the provider answered without any choice.
var ErrEmptyCompletion = errors.New("completion has no choices")
