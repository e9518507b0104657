package apperrors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("too many requests")

	// Update-target resolution failures. Kept distinct: the caller message
	// for "nothing matched" differs from "more than one row matched".
	ErrNoUpdateTarget        = errors.New("no matching menu item found for buffer update")
	ErrAmbiguousUpdateTarget = errors.New("multiple menu items matched that description; specify the meal")
)
