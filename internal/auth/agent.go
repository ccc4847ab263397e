package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// AgentAuthMiddleware validates field-agent upload signatures.
type AgentAuthMiddleware struct {
	Secret  []byte
	MaxSkew time.Duration
}

// NewAgentAuthMiddleware constructs agent auth middleware.
func NewAgentAuthMiddleware(secret []byte, maxSkew time.Duration) *AgentAuthMiddleware {
	return &AgentAuthMiddleware{Secret: secret, MaxSkew: maxSkew}
}

// Wrap enforces agent signature validation.
func (m *AgentAuthMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.Secret) == 0 {
			http.Error(w, "agent auth not configured", http.StatusUnauthorized)
			return
		}
		timestamp := strings.TrimSpace(r.Header.Get("X-Agent-Timestamp"))
		signature := strings.TrimSpace(r.Header.Get("X-Agent-Signature"))
		companyID := strings.TrimSpace(r.Header.Get("X-Agent-Company"))
		if timestamp == "" || signature == "" {
			http.Error(w, "missing agent signature", http.StatusUnauthorized)
			return
		}
		if companyID == "" {
			http.Error(w, "missing agent company", http.StatusUnauthorized)
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			http.Error(w, "invalid agent timestamp", http.StatusUnauthorized)
			return
		}
		skew := time.Since(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if m.MaxSkew > 0 && skew > m.MaxSkew {
			http.Error(w, "agent signature expired", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		expected := computeAgentSignature(m.Secret, timestamp, companyID, body)
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			http.Error(w, "invalid agent signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		ctx := WithIdentity(r.Context(), companyID, RoleTechnician, "field-agent")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func computeAgentSignature(secret []byte, timestamp, companyID string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write([]byte(companyID))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
