package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCentsFromAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{`"10.00"`, 1000},
		{"10.00", 1000},
		{"10.5", 1050},
		{"15", 1500},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"10.005", 1001},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, centsFromAmount(tt.in), "input %q", tt.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "10.00", formatAmount(1000))
	assert.Equal(t, "15.50", formatAmount(1550))
	assert.Equal(t, "0.01", formatAmount(1))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"status":"paid"}`)
	assert.True(t, verifySignature("secret", body, sign("secret", body)))
	assert.False(t, verifySignature("secret", body, sign("other", body)))
	assert.False(t, verifySignature("secret", body, ""))
	assert.False(t, verifySignature("secret", []byte("tampered"), sign("secret", body)))
}

func TestIPAllowed(t *testing.T) {
	assert.True(t, ipAllowed(nil, "1.2.3.4"), "empty allowlist disables the check")
	assert.True(t, ipAllowed([]string{"1.2.3.4", "5.6.7.8"}, "5.6.7.8"))
	assert.False(t, ipAllowed([]string{"1.2.3.4"}, "9.9.9.9"))
}
