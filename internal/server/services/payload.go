package services

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// maxLabelLength bounds the human label carried inside the link payload.
const maxLabelLength = 80

// linkPayload is the JSON the recipient receives. It travels inside a URL
// fragment, so it is never sent to any server; key is the raw 32-byte
// content key in base64url.
type linkPayload struct {
	URL   string `json:"url"`
	Key   string `json:"key"`
	Exp   int64  `json:"exp"`
	Label string `json:"label,omitempty"`
}

// composeLinkPayload wraps the manifest URL, decryption key, expiry, and
// label as "shlink:/<base64url(json)>".
func composeLinkPayload(manifestURL string, key []byte, expiresAt time.Time, label string) (string, error) {
	p := linkPayload{
		URL:   manifestURL,
		Key:   base64.RawURLEncoding.EncodeToString(key),
		Exp:   expiresAt.Unix(),
		Label: truncateLabel(label),
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return "shlink:/" + base64.RawURLEncoding.EncodeToString(b), nil
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxLabelLength {
		return label
	}
	return string(runes[:maxLabelLength])
}
