package models

import (
	"strconv"
	"strings"
)

// ParseResolution splits a "WxH" screen resolution. ok is false for anything that is
// not two positive integers.
func ParseResolution(res string) (width, height int, ok bool) {
	w, h, found := strings.Cut(strings.ToLower(strings.TrimSpace(res)), "x")
	if !found {
		return 0, 0, false
	}

	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, false
	}

	height, err = strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, false
	}

	return width, height, true
}

// FormatResolution renders a resolution the way it is stored.
func FormatResolution(width, height int) string {
	return strconv.Itoa(width) + "x" + strconv.Itoa(height)
}
