package race

import "errors"

// Sentinel kinds for race parsing errors.
var (
	ErrUnknownDistance  = errors.New("unknown race distance")
	ErrUnknownCondition = errors.New("unknown race condition")
)
