// Package identity derives stable, content-addressed identifiers for feeds
// and items from their URLs. Two URLs that canonicalize identically always
// produce the same identifier, which doubles as the store primary key and
// the idempotency token for get-or-create operations.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/purell"
)

var ErrInvalidURL = errors.New("invalid URL")

const normalizationFlags = purell.FlagsUsuallySafeGreedy | purell.FlagRemoveDuplicateSlashes

// Canonicalize rewrites a raw URL into its normalized form: lowercased
// scheme and host, default ports stripped, dot segments resolved, trailing
// slash removed.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing scheme or host", ErrInvalidURL, raw)
	}

	return purell.NormalizeURL(u, normalizationFlags), nil
}

// Digest returns the fixed-length hexadecimal identifier for an already
// canonical URL.
func Digest(canonical string) string {
	sum := sha256.Sum224([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Identify canonicalizes the URL and digests it in one step.
func Identify(raw string) (string, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	return Digest(canonical), nil
}
