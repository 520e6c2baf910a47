package crypto

import (
	"crypto/cipher"
	"errors"
	"fmt"

	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptNote seals plaintext with ChaCha20-Poly1305.
// additionalData is authenticated but not encrypted.
func EncryptNote(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// DecryptNote opens a ciphertext produced by EncryptNote.
func DecryptNote(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(key, nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		// wrong key/nonce, or tampered ciphertext/additionalData
		return nil, fmt.Errorf("failed to decrypt note: %w", err)
	}
	return plaintext, nil
}

func newAEAD(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: must be %d bytes", chacha20poly1305.KeySize)
	}
	if len(nonce) != chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("invalid nonce size: must be %d bytes", chacha20poly1305.NonceSize)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 AEAD: %w", err)
	}
	return aead, nil
}

// Seal encrypts plaintext to recipient under a fresh ephemeral key.
// The output is [ephemeral public key | ciphertext].
func Seal(recipient *jubjub.PublicKey, plaintext []byte) ([]byte, error) {
	ephPrv, err := NewKey()
	if err != nil {
		return nil, err
	}
	ephPub := ephPrv.PublicKey.Bytes()

	key, nonce, err := deriveNoteKey(ephPrv, recipient)
	if err != nil {
		return nil, err
	}
	ct, err := EncryptNote(key, nonce, plaintext, ephPub)
	if err != nil {
		return nil, err
	}
	return append(ephPub, ct...), nil
}

// Open decrypts the output of Seal with the recipient's private key.
func Open(prv *jubjub.PrivateKey, sealed []byte) ([]byte, error) {
	if len(sealed) <= PubKeySize {
		return nil, errors.New("sealed note too short")
	}
	ephPub, err := ParsePub(sealed[:PubKeySize])
	if err != nil {
		return nil, err
	}
	key, nonce, err := deriveNoteKey(prv, ephPub)
	if err != nil {
		return nil, err
	}
	return DecryptNote(key, nonce, sealed[PubKeySize:], sealed[:PubKeySize])
}

func deriveNoteKey(prv *jubjub.PrivateKey, pub *jubjub.PublicKey) ([]byte, []byte, error) {
	shared, err := ECDHEComputeSharedSecret(prv, pub)
	if err != nil {
		return nil, nil, err
	}
	kdf, err := SaplingKDF(shared, chacha20poly1305.KeySize+chacha20poly1305.NonceSize)
	if err != nil {
		return nil, nil, err
	}
	return kdf[:chacha20poly1305.KeySize], kdf[chacha20poly1305.KeySize:], nil
}
