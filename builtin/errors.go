package builtin

import "errors"

var (
	errNoHome             = errors.New("cd: HOME not set")
	errDotArg             = errors.New(".: filename argument required")
	errTestMissingBracket = errors.New("[: missing closing ]")
	errTestUnknownOp      = errors.New("test: unknown operator")
	errTestTooManyArgs    = errors.New("test: too many arguments")
	errTestNotNumeric     = errors.New("test: argument expected to be a numeric value")
)
