package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSize = errors.New("invalid size")

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Sizes lists every variant in display order.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

func ParseSize(raw string) (Size, error) {
	s := Size(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSize, raw)
	}
	return s, nil
}
