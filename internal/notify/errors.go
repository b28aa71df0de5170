package notify

import "errors"

// Sentinel errors returned by the notifier.
var (
	ErrMissingWebhook = errors.New("notify: webhook url is not configured")
	ErrUnknownJob     = errors.New("notify: unknown job")
	ErrDelivery       = errors.New("notify: webhook rejected message")
)
