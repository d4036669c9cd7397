package racetime

import "errors"

// ErrUnparseable is returned when a duration string is not a valid H:MM:SS value.
var ErrUnparseable = errors.New("unparseable race time")
