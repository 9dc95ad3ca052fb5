package artifact

import (
	"os"

	"github.com/replaykit/replaykit/internal/canon"
)

// SigningKeyEnvVar and SigningKeyIDEnvVar name the environment variables
// the CLI reads a signing key and its identifier from, so keys never
// need to appear on the command line or in config files.
const (
	SigningKeyEnvVar   = "REPLAYKIT_SIGNING_KEY"
	SigningKeyIDEnvVar = "REPLAYKIT_SIGNING_KEY_ID"
)

// SigningKeyFromEnv reads a signing key and key id from the environment.
// ok is false if no key is configured.
func SigningKeyFromEnv() (key []byte, keyID string, ok bool) {
	raw := os.Getenv(SigningKeyEnvVar)
	if raw == "" {
		return nil, "", false
	}
	return []byte(raw), os.Getenv(SigningKeyIDEnvVar), true
}

// Sign attaches an HMAC-SHA256 signature over {version, metadata,
// payload, checksum} to env.
func Sign(env Envelope, key []byte, keyID string) (Envelope, error) {
	payload, err := canon.MarshalCanonical(signaturePayloadValue(env))
	if err != nil {
		return Envelope{}, err
	}
	env.Signature = &Signature{
		Algorithm: canon.SignatureAlgorithm,
		KeyID:     keyID,
		Value:     canon.HMAC(key, payload),
	}
	return env, nil
}

// VerifySignature checks env's signature against key, if any is present.
// allowUnsigned controls whether a missing signature is treated as OK
// (verified pipelines with no key configured) or as a failure.
func VerifySignature(env Envelope, key []byte, allowUnsigned bool) canon.SignatureVerificationResult {
	if env.Signature == nil {
		if allowUnsigned {
			return canon.SignatureVerificationResult{Status: canon.SignatureUnsignedAllowed, Message: "artifact is unsigned"}
		}
		return canon.SignatureVerificationResult{Status: canon.SignatureMissingSignature, Message: "artifact has no signature"}
	}
	if env.Signature.Algorithm != canon.SignatureAlgorithm {
		return canon.SignatureVerificationResult{
			Status:  canon.SignatureUnsupportedAlgo,
			KeyID:   env.Signature.KeyID,
			Message: "unsupported signature algorithm: " + env.Signature.Algorithm,
		}
	}
	if len(key) == 0 {
		return canon.SignatureVerificationResult{Status: canon.SignatureMissingKey, KeyID: env.Signature.KeyID, Message: "no signing key configured to verify against"}
	}
	payload, err := canon.MarshalCanonical(signaturePayloadValue(env))
	if err != nil {
		return canon.SignatureVerificationResult{Status: canon.SignatureInvalid, KeyID: env.Signature.KeyID, Message: err.Error()}
	}
	if !canon.VerifyHMAC(key, payload, env.Signature.Value) {
		return canon.SignatureVerificationResult{Status: canon.SignatureInvalid, KeyID: env.Signature.KeyID, Message: "signature does not match payload"}
	}
	return canon.SignatureVerificationResult{Status: canon.SignatureVerified, KeyID: env.Signature.KeyID, Message: "signature verified"}
}
