package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing request signature")
	ErrStaleRequest     = errors.New("request timestamp outside tolerance")
	ErrBadSignature     = errors.New("request signature mismatch")
)

// SlackSignatureTolerance bounds the age of a signed Slack request
const SlackSignatureTolerance = 5 * time.Minute

// VerifySlackSignature checks the X-Slack-Signature header of an Events API
// request: v0= followed by hex HMAC-SHA256 of "v0:<timestamp>:<body>".
func VerifySlackSignature(secret, timestamp, signature string, body []byte, now time.Time) error {
	if timestamp == "" || signature == "" {
		return ErrMissingSignature
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMissingSignature
	}
	if math.Abs(now.Sub(time.Unix(ts, 0)).Seconds()) > SlackSignatureTolerance.Seconds() {
		return ErrStaleRequest
	}

	if !hmac.Equal([]byte(SignSlack(secret, timestamp, body)), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// SignSlack computes the v0 signature for a request body
func SignSlack(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}
