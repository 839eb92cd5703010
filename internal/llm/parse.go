package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrNoInteger is returned by FirstInt when the text holds no usable integer.
var ErrNoInteger = errors.New("llm: no integer literal in response")

var firstIntPattern = regexp.MustCompile(`-?\d+`)

// FirstInt extracts the first integer literal from a free-text model response.
// A leading minus sign is kept so negative ratings survive.
func FirstInt(s string) (int, error) {
	match := firstIntPattern.FindString(s)
	if match == "" {
		return 0, ErrNoInteger
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrNoInteger, match, err)
	}
	return n, nil
}
