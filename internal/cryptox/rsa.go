package cryptox

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// pkcs1Overhead is the PKCS#1 v1.5 padding overhead in bytes.
const pkcs1Overhead = 11

// MaxRSAPlaintext returns the largest plaintext pub can encrypt (245 bytes for 2048-bit keys).
func MaxRSAPlaintext(pub *rsa.PublicKey) int {
	if pub == nil {
		return 0
	}
	return pub.Size() - pkcs1Overhead
}

// EncryptRSA encrypts a short field for the holder of pub. Oversize input is
// rejected rather than truncated.
func EncryptRSA(plaintext string, pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", shared.Wrap(shared.ErrConfig, "cryptox: rsa public key missing", nil)
	}
	if len(plaintext) > MaxRSAPlaintext(pub) {
		return "", shared.Wrap(shared.ErrData, "cryptox: data length exceeds rsa limit", nil)
	}
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return "", shared.Wrap(shared.ErrData, "cryptox: data length exceeds rsa limit", nil)
		}
		return "", shared.Wrap(shared.ErrProcess, "cryptox: rsa encrypt", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptRSA decrypts a base64 field with priv. Malformed input, a wrong key
// and padding failures are indistinguishable to the caller.
func DecryptRSA(b64 string, priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", shared.Wrap(shared.ErrConfig, "cryptox: rsa private key missing", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", shared.Wrap(shared.ErrData, "cryptox: input is not valid base64", nil)
	}
	plain, err := rsa.DecryptPKCS1v15(nil, priv, raw)
	if err != nil {
		return "", shared.Wrap(shared.ErrData, "cryptox: rsa decrypt", nil)
	}
	return string(plain), nil
}

// Sign returns a base64 SHA-256 PKCS#1 v1.5 signature of data.
func Sign(data string, priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", shared.Wrap(shared.ErrConfig, "cryptox: rsa private key missing", nil)
	}
	digest := sha256.Sum256([]byte(data))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", shared.Wrap(shared.ErrProcess, "cryptox: rsa sign", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sigB64 is a valid signature of data under pub.
// A signature that is not base64 is a caller fault and returns shared.ErrData.
func Verify(data, sigB64 string, pub *rsa.PublicKey) (bool, error) {
	if pub == nil {
		return false, shared.Wrap(shared.ErrConfig, "cryptox: rsa public key missing", nil)
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, shared.Wrap(shared.ErrData, "cryptox: signature is not valid base64", nil)
	}
	digest := sha256.Sum256([]byte(data))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil, nil
}
