package interp

import "errors"

var errShiftTooFar = errors.New("shift: count exceeds positional parameters")
