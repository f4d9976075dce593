package services

import "time"

// now returns the current instant in UTC at millisecond precision, the finest
// resolution every supported database round-trips unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
