package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"
)

const (
	namespaceKeyLength = 16
	maxFileNameRunes   = 120
)

// ErrInvalidFileName is returned for names that are empty or try to leave the store root.
var ErrInvalidFileName = errors.New("invalid file name")

// NamespaceKey returns a short, filesystem-safe directory name for a storage namespace.
func NamespaceKey(namespace string) string {
	sum := sha256.Sum256([]byte(namespace))
	return hex.EncodeToString(sum[:])[:namespaceKeyLength]
}

// SanitizeFileName flattens separators, drops control characters and caps the
// length while keeping the extension, so the stored name still maps to a file type.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", ErrInvalidFileName
	}

	runes := []rune(s)
	if len(runes) <= maxFileNameRunes {
		return s, nil
	}
	ext := []rune(path.Ext(s))
	if len(ext) >= maxFileNameRunes {
		ext = nil
	}
	return string(runes[:maxFileNameRunes-len(ext)]) + string(ext), nil
}
