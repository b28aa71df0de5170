package directory

import "errors"

// Sentinel errors for directory loading.
var (
	ErrLoadDirectory = errors.New("load directory failed")
	ErrInvalidPerson = errors.New("invalid person")
)
