package posclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// Header names used towards the POS.
const (
	HeaderAPIKey       = "X-Wallet-Api-Key"
	HeaderLegacyKey    = "X-Api-Key"
	HeaderLegacyTime   = "X-Timestamp"
	HeaderLegacySig    = "X-Signature"
	HeaderClientSource = "X-Client-Source"
)

// AuthStrategy decorates an outbound request with credentials.
type AuthStrategy interface {
	Apply(req *http.Request)
	Name() string
}

// HeaderKeyAuth sends the shared API key in a single header.
type HeaderKeyAuth struct {
	APIKey string
}

func (a HeaderKeyAuth) Apply(req *http.Request) {
	req.Header.Set(HeaderAPIKey, a.APIKey)
}

func (a HeaderKeyAuth) Name() string { return "header_key" }

// LegacyHMACAuth signs key|timestamp with the legacy secret, for POS builds
// that predate the key header.
type LegacyHMACAuth struct {
	APIKey string
	Secret string
	Now    func() time.Time
}

func (a LegacyHMACAuth) Apply(req *http.Request) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	ts := strconv.FormatInt(now().Unix(), 10)

	req.Header.Set(HeaderLegacyKey, a.APIKey)
	req.Header.Set(HeaderLegacyTime, ts)
	req.Header.Set(HeaderLegacySig, LegacySignature(a.APIKey, ts, a.Secret))
}

func (a LegacyHMACAuth) Name() string { return "legacy_hmac" }

// LegacySignature is hex(HMAC-SHA256(key+timestamp, secret)).
func LegacySignature(apiKey, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(apiKey + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}
