package domain

import (
	"fmt"
	"math"
	"strconv"
)

// MaxTarget is the largest number the key space covers.
const MaxTarget = math.MaxUint32

// ParseTarget parses a base-10 target number.
// Anything that is not a plain decimal integer in [0, MaxTarget] is a
// validation error.
func ParseTarget(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, NewValidationError(fmt.Sprintf("bad number %q", s), err)
	}
	return CheckTarget(n)
}

// CheckTarget narrows n to a target, rejecting values past MaxTarget.
func CheckTarget(n uint64) (uint32, error) {
	if n > MaxTarget {
		return 0, NewValidationError(fmt.Sprintf("bad number %d: must be in [0, %d]", n, uint64(MaxTarget)), nil)
	}
	return uint32(n), nil
}
