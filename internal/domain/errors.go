package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrCycleBusy       = errors.New("update cycle already in progress")
	ErrFeedUnavailable = errors.New("feed unavailable")
	ErrDecodeFailed    = errors.New("attribute blob decode failed")
)
