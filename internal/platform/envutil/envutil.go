package envutil

import (
	"os"
	"strconv"
	"strings"
)

// Lookup returns the trimmed value of name and whether it was set to something non-empty.
func Lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

func String(name string, def string) string {
	if v, ok := Lookup(name); ok {
		return v
	}
	return def
}

func Float(name string, def float64) float64 {
	v, ok := Lookup(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func Bool(name string, def bool) bool {
	v, ok := Lookup(name)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	case "0", "f", "false", "n", "no", "off":
		return false
	default:
		return def
	}
}
