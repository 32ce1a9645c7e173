package model

import "fmt"

// errInvalid wraps a formatted message as an error. Used by every
// Validate() method in this package — violations are programmer errors
// (malformed configuration) and are meant to be fatal at construction
// time, per spec §7.
func errInvalid(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
