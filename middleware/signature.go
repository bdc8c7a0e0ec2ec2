package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meetwise/utils"

	"github.com/gin-gonic/gin"
)

// MaxSignatureSkew bounds how old a signed webhook may be before it is
// rejected as a replay.
const MaxSignatureSkew = 10 * time.Minute

// CronAuthMiddleware gates the internal cron-trigger endpoints behind a
// shared secret header.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Cron-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
			return
		}
		c.Next()
	}
}

// VerifySignedPayload checks a "t=<unix>,v1=<hex>" signature header over
// "<t>.<payload>". Both the current and next secret are accepted, so keys
// rotate without dropping deliveries. Stale timestamps are replays.
func VerifySignedPayload(payload []byte, header string, now time.Time, secrets ...string) error {
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	issued := time.Unix(ts, 0)
	if now.Sub(issued) > MaxSignatureSkew || issued.Sub(now) > MaxSignatureSkew {
		return utils.E(utils.KindSignatureInvalid, "signature timestamp outside tolerance")
	}

	signed := strconv.FormatInt(ts, 10) + "." + string(payload)
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(signed))
		expected := hex.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return utils.E(utils.KindSignatureInvalid, "signature mismatch")
}

// SignPayload produces the header VerifySignedPayload accepts. Exposed for
// tests and local tooling.
func SignPayload(payload []byte, secret string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", utils.E(utils.KindSignatureInvalid, "malformed signature timestamp")
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", utils.E(utils.KindSignatureInvalid, "malformed signature header")
	}
	return ts, sig, nil
}
