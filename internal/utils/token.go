package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/yukikurage/agency-api/internal/constants"
)

// GenerateInvitationToken returns a URL-safe random token for invitation links
func GenerateInvitationToken() (string, error) {
	b := make([]byte, constants.InvitationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSlug derives a URL-safe organization slug from name with a random
// suffix, in the format name-xxxxxx. Non-ASCII letters are transliterated.
func GenerateSlug(name string) (string, error) {
	base := slug.Make(name)
	if len(base) > 80 {
		base = strings.Trim(base[:80], "-")
	}
	if base == "" {
		base = "org"
	}

	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base + "-" + hex.EncodeToString(b), nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
