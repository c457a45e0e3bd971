package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultledger/vaultledger/internal/shared"
)

var testAESKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func writePEM(t *testing.T, name string, blocks ...*pem.Block) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var data []byte
	for _, block := range blocks {
		data = append(data, pem.EncodeToMemory(block)...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFromPEM(t *testing.T) {
	key := generateKey(t)
	path := writePEM(t, "service.pem", &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	material, err := Load(Config{AESKeyBase64: testAESKey, KeystorePath: path})
	require.NoError(t, err)
	assert.Len(t, material.SymmetricKey, 32)
	assert.Equal(t, 0, material.PrivateKey.N.Cmp(key.N))
	assert.Equal(t, 0, material.PublicKey.N.Cmp(key.N))
	assert.Same(t, material.PublicKey, material.PeerPublicKey)
}

func TestLoadPeerPublicKey(t *testing.T) {
	own := generateKey(t)
	peer := generateKey(t)
	ownPath := writePEM(t, "own.pem", &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(own)})
	der, err := x509.MarshalPKIXPublicKey(&peer.PublicKey)
	require.NoError(t, err)
	peerPath := writePEM(t, "peer.pem", &pem.Block{Type: "PUBLIC KEY", Bytes: der})

	material, err := Load(Config{AESKeyBase64: testAESKey, KeystorePath: ownPath, PeerPublicKeyPath: peerPath})
	require.NoError(t, err)
	assert.Equal(t, 0, material.PeerPublicKey.N.Cmp(peer.N))
	assert.NotEqual(t, 0, material.PeerPublicKey.N.Cmp(material.PublicKey.N))
}

func TestLoadPKCS8PEM(t *testing.T) {
	key := generateKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	path := writePEM(t, "service.pem", &pem.Block{Type: "PRIVATE KEY", Bytes: der})

	priv, pub, err := LoadKeyPair(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, priv.N.Cmp(key.N))
	assert.Equal(t, 0, pub.N.Cmp(key.N))
}

func TestLoadFailuresAreConfigErrors(t *testing.T) {
	key := generateKey(t)
	good := writePEM(t, "service.pem", &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	junkP12 := filepath.Join(t.TempDir(), "service.p12")
	require.NoError(t, os.WriteFile(junkP12, []byte("not a keystore"), 0o600))
	empty := writePEM(t, "empty.pem")

	cases := map[string]Config{
		"bad aes base64":   {AESKeyBase64: "%%%", KeystorePath: good},
		"bad aes length":   {AESKeyBase64: base64.StdEncoding.EncodeToString([]byte("short")), KeystorePath: good},
		"missing path":     {AESKeyBase64: testAESKey},
		"missing file":     {AESKeyBase64: testAESKey, KeystorePath: filepath.Join(t.TempDir(), "nope.p12")},
		"corrupt keystore": {AESKeyBase64: testAESKey, KeystorePath: junkP12, KeystorePassword: "changeit"},
		"no private key":   {AESKeyBase64: testAESKey, KeystorePath: empty},
		"missing peer":     {AESKeyBase64: testAESKey, KeystorePath: good, PeerPublicKeyPath: filepath.Join(t.TempDir(), "peer.pem")},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			material, err := Load(cfg)
			require.Error(t, err)
			assert.Nil(t, material)
			assert.ErrorIs(t, err, shared.ErrConfig)
		})
	}
}

func TestSelectKeyPairByAlias(t *testing.T) {
	first := generateKey(t)
	second := generateKey(t)
	blocks := []*pem.Block{
		{Type: "PRIVATE KEY", Headers: map[string]string{"friendlyName": "legacy"}, Bytes: x509.MarshalPKCS1PrivateKey(first)},
		{Type: "PRIVATE KEY", Headers: map[string]string{"friendlyName": "vaultledger"}, Bytes: x509.MarshalPKCS1PrivateKey(second)},
	}

	priv, pub, err := selectKeyPair(blocks, "VaultLedger")
	require.NoError(t, err)
	assert.Equal(t, 0, priv.N.Cmp(second.N))
	assert.Equal(t, 0, pub.N.Cmp(second.N))

	priv, _, err = selectKeyPair(blocks, "")
	require.NoError(t, err)
	assert.Equal(t, 0, priv.N.Cmp(first.N))

	_, _, err = selectKeyPair(blocks, "unknown")
	assert.ErrorIs(t, err, shared.ErrConfig)
}

func TestSelectKeyPairRejectsMismatchedPublicKey(t *testing.T) {
	key := generateKey(t)
	other := generateKey(t)
	der, err := x509.MarshalPKIXPublicKey(&other.PublicKey)
	require.NoError(t, err)
	blocks := []*pem.Block{
		{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)},
		{Type: "PUBLIC KEY", Bytes: der},
	}

	_, _, err = selectKeyPair(blocks, "")
	assert.ErrorIs(t, err, shared.ErrConfig)
}
