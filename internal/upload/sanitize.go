// File: internal/upload/sanitize.go
package upload

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"marketplace_backend/internal/platform/crypto"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidFilename = errors.New("file has no usable name")
)

var disallowedFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

const filenameSeparators = "._-"

// placeholderNames are what browsers and form libraries send when a file
// reference lost its name.
var placeholderNames = map[string]struct{}{
	"undefined": {},
	"null":      {},
	"blob":      {},
	"unknown":   {},
	"untitled":  {},
}

// SanitizeFilename drops everything outside [A-Za-z0-9._-], trims leading and
// trailing separators and substitutes a generated name when nothing is left.
// Sanitizing its own output returns the same string.
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	cleaned := disallowedFilenameChars.ReplaceAllString(base, "")
	cleaned = strings.Trim(cleaned, filenameSeparators)
	if cleaned == "" {
		return placeholderFilename()
	}
	return cleaned
}

func placeholderFilename() string {
	suffix, err := crypto.RandomHex(4)
	if err != nil {
		suffix = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return "file-" + suffix
}

// IsPlaceholderName reports whether name is empty or a known placeholder.
func IsPlaceholderName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	if _, ok := placeholderNames[n]; ok {
		return true
	}
	stem := strings.TrimSuffix(n, path.Ext(n))
	_, ok := placeholderNames[stem]
	return ok
}

// ValidateFile checks a file before any network call is made for it.
func ValidateFile(f File) error {
	if IsPlaceholderName(f.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, f.Name)
	}
	if f.Size <= 0 || len(f.Content) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyFile, f.Name)
	}
	return nil
}

// ObjectPath builds {ownerID}/{subfolder}/{uuid}-{sanitized name}.
func ObjectPath(ownerID, subfolder, name string) string {
	return fmt.Sprintf("%s/%s/%s-%s", ownerID, subfolder, uuid.NewString(), SanitizeFilename(name))
}
