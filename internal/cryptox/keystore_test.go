package cryptox

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uploadContent = []byte("This is the upload content")

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	ks := NewKeyStore("")
	require.NoError(t, ks.Add("app-1", kp.PrivateKey))

	ct, err := Encrypt(uploadContent, kp.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, uploadContent, ct)

	pt, err := ks.Decrypt("app-1", ct)
	require.NoError(t, err)
	assert.Equal(t, uploadContent, pt)
}

func TestDecrypt_Armored(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	recipient, err := age.ParseX25519Recipient(kp.PublicKey)
	require.NoError(t, err)

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	require.NoError(t, err)
	_, err = w.Write(uploadContent)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, aw.Close())

	ks := NewKeyStore("")
	require.NoError(t, ks.Add("app-1", kp.PrivateKey))

	pt, err := ks.Decrypt("app-1", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uploadContent, pt)
}

func TestDecrypt_LoadsKeyFromDir(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "study-app.key"), []byte(kp.PrivateKey+"\n"), 0o600))

	ct, err := Encrypt(uploadContent, kp.PublicKey)
	require.NoError(t, err)

	ks := NewKeyStore(dir)
	pt, err := ks.Decrypt("study-app", ct)
	require.NoError(t, err)
	assert.Equal(t, uploadContent, pt)
}

func TestDecrypt_Failures(t *testing.T) {
	owner, err := GenerateKeypair()
	require.NoError(t, err)
	other, err := GenerateKeypair()
	require.NoError(t, err)

	ct, err := Encrypt(uploadContent, owner.PublicKey)
	require.NoError(t, err)

	ks := NewKeyStore(t.TempDir())
	require.NoError(t, ks.Add("wrong-key", other.PrivateKey))

	tests := []struct {
		name  string
		appID string
		data  []byte
	}{
		{"missing key file", "no-such-app", ct},
		{"path traversal rejected", "../etc", ct},
		{"wrong identity", "wrong-key", ct},
		{"garbage payload", "wrong-key", []byte("not an envelope")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ks.Decrypt(tt.appID, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrDecryption))
		})
	}
}

func TestAdd_InvalidKey(t *testing.T) {
	ks := NewKeyStore("")
	assert.Error(t, ks.Add("app", "AGE-SECRET-KEY-NOPE"))
}

func TestEncrypt_InvalidRecipient(t *testing.T) {
	_, err := Encrypt(uploadContent, "age1invalid")
	assert.Error(t, err)
}
