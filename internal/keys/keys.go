// Package keys loads the process-wide key material once at startup.
package keys

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/vaultledger/vaultledger/internal/cryptox"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// Config locates the key material.
type Config struct {
	AESKeyBase64     string
	KeystorePath     string
	KeystorePassword string
	Alias            string
	// PeerPublicKeyPath optionally names the PEM public key of the receiving
	// service; when empty packets are addressed to our own key pair.
	PeerPublicKeyPath string
}

// Material is immutable after Load and safe for concurrent reads.
type Material struct {
	SymmetricKey  []byte
	PrivateKey    *rsa.PrivateKey
	PublicKey     *rsa.PublicKey
	PeerPublicKey *rsa.PublicKey
}

// Load decodes the AES key and reads the RSA pair from a PKCS#12 keystore
// (.p12/.pfx) or a PEM file. Every failure wraps shared.ErrConfig.
func Load(cfg Config) (*Material, error) {
	symmetric, err := cryptox.DeriveKey(strings.TrimSpace(cfg.AESKeyBase64))
	if err != nil {
		return nil, err
	}
	priv, pub, err := LoadKeyPair(cfg.KeystorePath, cfg.KeystorePassword, cfg.Alias)
	if err != nil {
		return nil, err
	}
	peer := pub
	if cfg.PeerPublicKeyPath != "" {
		peer, err = LoadPublicKey(cfg.PeerPublicKeyPath)
		if err != nil {
			return nil, err
		}
	}
	return &Material{SymmetricKey: symmetric, PrivateKey: priv, PublicKey: pub, PeerPublicKey: peer}, nil
}

// LoadKeyPair reads an RSA key pair from path.
func LoadKeyPair(path, password, alias string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if path == "" {
		return nil, nil, shared.Wrap(shared.ErrConfig, "keys: keystore path required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, shared.Wrap(shared.ErrConfig, fmt.Sprintf("keys: keystore not found: %s", path), err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		blocks, err := pkcs12.ToPEM(data, password)
		if err != nil {
			if errors.Is(err, pkcs12.ErrIncorrectPassword) {
				return nil, nil, shared.Wrap(shared.ErrConfig, "keys: invalid keystore password", nil)
			}
			return nil, nil, shared.Wrap(shared.ErrConfig, "keys: unable to read keystore", err)
		}
		return selectKeyPair(blocks, alias)
	default:
		var blocks []*pem.Block
		for rest := data; ; {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			blocks = append(blocks, block)
		}
		return selectKeyPair(blocks, alias)
	}
}

// LoadPublicKey reads a PEM encoded RSA public key or certificate.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.Wrap(shared.ErrConfig, fmt.Sprintf("keys: public key not found: %s", path), err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, shared.Wrap(shared.ErrConfig, "keys: public key is not pem", nil)
	}
	return parsePublic(block)
}

// selectKeyPair picks the private key named alias (friendlyName) and the
// matching certificate. Without an alias the first private key wins.
func selectKeyPair(blocks []*pem.Block, alias string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	var priv *rsa.PrivateKey
	var pub *rsa.PublicKey
	for _, block := range blocks {
		if !aliasMatches(block, alias) {
			continue
		}
		switch block.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY":
			if priv != nil {
				continue
			}
			key, err := parsePrivate(block.Bytes)
			if err != nil {
				return nil, nil, err
			}
			priv = key
		case "CERTIFICATE", "PUBLIC KEY", "RSA PUBLIC KEY":
			if pub != nil {
				continue
			}
			key, err := parsePublic(block)
			if err != nil {
				return nil, nil, err
			}
			pub = key
		}
	}
	if priv == nil {
		return nil, nil, shared.Wrap(shared.ErrConfig, fmt.Sprintf("keys: private key not found for alias %q", alias), nil)
	}
	if pub == nil {
		pub = &priv.PublicKey
	}
	if pub.N.Cmp(priv.N) != 0 {
		return nil, nil, shared.Wrap(shared.ErrConfig, fmt.Sprintf("keys: certificate does not match private key for alias %q", alias), nil)
	}
	return priv, pub, nil
}

func aliasMatches(block *pem.Block, alias string) bool {
	if alias == "" {
		return true
	}
	name, ok := block.Headers["friendlyName"]
	if !ok {
		// Plain PEM files carry no alias.
		return len(block.Headers) == 0
	}
	return strings.EqualFold(name, alias)
}

func parsePrivate(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, shared.Wrap(shared.ErrConfig, "keys: unreadable private key", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, shared.Wrap(shared.ErrConfig, "keys: private key is not rsa", nil)
	}
	return key, nil
}

func parsePublic(block *pem.Block) (*rsa.PublicKey, error) {
	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, shared.Wrap(shared.ErrConfig, "keys: invalid certificate format", err)
		}
		key, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, shared.Wrap(shared.ErrConfig, "keys: certificate key is not rsa", nil)
		}
		return key, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, shared.Wrap(shared.ErrConfig, "keys: unreadable public key", err)
		}
		return key, nil
	default:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, shared.Wrap(shared.ErrConfig, "keys: unreadable public key", err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, shared.Wrap(shared.ErrConfig, "keys: public key is not rsa", nil)
		}
		return key, nil
	}
}
