// Package cryptox implements the decryption stage of the export pipeline.
//
// Participants encrypt uploads to the destination app's public key using the
// age envelope format (X25519 recipients, optionally ASCII armored). The
// exporter holds the matching private identities, one per app, and unwraps
// payloads before they are written to the archive.
package cryptox

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Keypair is an app's age identity rendered as strings.
type Keypair struct {
	// PrivateKey is in AGE-SECRET-KEY-1... form and must never be logged.
	PrivateKey string
	// PublicKey is in age1... form and is handed to clients.
	PublicKey string
}

// GenerateKeypair creates a fresh X25519 identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}
	return &Keypair{PrivateKey: identity.String(), PublicKey: identity.Recipient().String()}, nil
}

// Encrypt seals plaintext to the given public key. It is what upload clients
// do before staging; the exporter only uses it in tooling and tests.
func Encrypt(plaintext []byte, publicKey string) ([]byte, error) {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// open unwraps an envelope, accepting both binary and armored encodings.
func open(ciphertext []byte, identities ...age.Identity) ([]byte, error) {
	var src io.Reader = bytes.NewReader(ciphertext)

	br := bufio.NewReader(src)
	if head, _ := br.Peek(len(armor.Header)); string(head) == armor.Header {
		src = armor.NewReader(br)
	} else {
		src = br
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
