package domain

import (
	"errors"
	"strings"
)

const (
	// MaxValueSize is the maximum size of a stored value in bytes (512KB).
	// It matches the wire protocol's bulk string limit.
	MaxValueSize = 512 * 1024

	// MaxPathLen caps the byte length of a record path.
	MaxPathLen = 1024

	// MaxPathDepth caps the number of segments in a record path.
	MaxPathDepth = 16
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrValueTooLarge = errors.New("value exceeds maximum size")
)

// ValidatePath checks a slash-delimited record path. A valid path starts
// with "/", has no empty segments, no trailing slash, and stays within the
// length and depth caps.
func ValidatePath(path string) error {
	if path == "" || path[0] != '/' {
		return ErrInvalidPath
	}
	if len(path) > MaxPathLen {
		return ErrInvalidPath
	}

	segments := strings.Split(path[1:], "/")
	if len(segments) > MaxPathDepth {
		return ErrInvalidPath
	}
	for _, segment := range segments {
		if segment == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// ValidateValue checks a record payload against the size cap.
func ValidateValue(value []byte) error {
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}
	return nil
}

// ChildPath joins a parent path and a generated child segment.
func ChildPath(parent, segment string) string {
	return parent + "/" + segment
}
