package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrInvalidWindow     = errors.New("invalid window")
	ErrNotStarted        = errors.New("service not started")
	ErrNoDirectory       = errors.New("no directory loaded")
	ErrNoDirectorySource = errors.New("no directory source configured")
	ErrUnknownPerson     = errors.New("unknown person")
)
