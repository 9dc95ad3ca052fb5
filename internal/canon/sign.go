package canon

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureAlgorithm identifies the HMAC construction used to sign
// artifact envelopes. It is recorded in the envelope so verification can
// reject signatures produced by an algorithm this build doesn't support.
const SignatureAlgorithm = "hmac-sha256"

// SignatureStatus reports the outcome of verifying an artifact's
// signature against a signing key.
type SignatureStatus string

const (
	SignatureVerified            SignatureStatus = "verified"
	SignatureUnsignedAllowed     SignatureStatus = "unsigned_allowed"
	SignatureMissingSignature    SignatureStatus = "missing_signature"
	SignatureMissingKey          SignatureStatus = "missing_key"
	SignatureInvalid             SignatureStatus = "invalid_signature"
	SignatureUnsupportedAlgo     SignatureStatus = "unsupported_algorithm"
)

// SignatureVerificationResult is the structured outcome of verifying an
// artifact signature, returned to callers instead of a bare bool so they
// can distinguish "not signed, and that's fine" from "signed but wrong".
type SignatureVerificationResult struct {
	Status  SignatureStatus
	KeyID   string
	Message string
}

// OK reports whether the artifact should be treated as trustworthy: it
// is either genuinely verified, or unsigned in a context that permits it.
func (r SignatureVerificationResult) OK() bool {
	return r.Status == SignatureVerified || r.Status == SignatureUnsignedAllowed
}

// HMAC computes the hex-encoded HMAC-SHA256 of payload under key.
func HMAC(key, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC reports whether signature matches the HMAC-SHA256 of payload
// under key, using a constant-time comparison.
func VerifyHMAC(key, payload []byte, signature string) bool {
	expected := HMAC(key, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
