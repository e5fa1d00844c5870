package token

import (
	"fmt"
	"net/url"

	dErrors "credvault/pkg/domain-errors"
)

// BuildShareLink embeds a serialized token into a verification URL, the
// "magic link" a holder can hand to a verifier.
func BuildShareLink(baseURL, serialized string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("token", serialized)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenFromLink extracts the serialized token from a share link.
func TokenFromLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeMalformedToken, "share link is not a valid URL", err)
	}
	serialized := u.Query().Get("token")
	if serialized == "" {
		return "", dErrors.New(dErrors.CodeMalformedToken, "share link carries no token parameter")
	}
	return serialized, nil
}
