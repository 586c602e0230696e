package push

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// RFC 8291 message encryption (aes128gcm content coding). The payload is
// sealed with keys derived from an ECDH agreement between a per-message
// ephemeral key and the subscription's p256dh key, bound by the auth secret.
const (
	recordSize     = 4096
	saltLength     = 16
	keyLength      = 16
	nonceLength    = 12
	maxPlaintext   = recordSize - 16 - 1 - 86 // GCM tag, padding delimiter, header
	authSecretSize = 16
)

// encryptPayload seals plaintext for the subscription identified by its
// base64-encoded p256dh public key and auth secret, producing a complete
// aes128gcm body (header || single record).
func encryptPayload(plaintext []byte, p256dh, auth string) ([]byte, error) {
	if len(plaintext) > maxPlaintext {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(plaintext), maxPlaintext)
	}

	clientPubBytes, err := decodeKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("decode p256dh key: %w", err)
	}
	authSecret, err := decodeKey(auth)
	if err != nil {
		return nil, fmt.Errorf("decode auth secret: %w", err)
	}
	if len(authSecret) != authSecretSize {
		return nil, fmt.Errorf("auth secret must be %d bytes, got %d", authSecretSize, len(authSecret))
	}

	curve := ecdh.P256()
	clientPub, err := curve.NewPublicKey(clientPubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse p256dh key: %w", err)
	}

	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	sharedSecret, err := ephemeral.ECDH(clientPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH agreement: %w", err)
	}
	serverPubBytes := ephemeral.PublicKey().Bytes()

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return sealRecord(plaintext, sharedSecret, authSecret, salt, clientPubBytes, serverPubBytes)
}

// sealRecord performs the RFC 8291 key schedule and seals a single record.
// Split from encryptPayload so tests can drive it with fixed inputs.
func sealRecord(plaintext, sharedSecret, authSecret, salt, clientPub, serverPub []byte) ([]byte, error) {
	// IKM = HKDF(salt=auth, ikm=ecdh_secret, info="WebPush: info" || 0x00 || ua_public || as_public)
	keyInfo := append([]byte("WebPush: info\x00"), clientPub...)
	keyInfo = append(keyInfo, serverPub...)
	ikm, err := deriveKey(sharedSecret, authSecret, keyInfo, 32)
	if err != nil {
		return nil, fmt.Errorf("derive IKM: %w", err)
	}

	cek, err := deriveKey(ikm, salt, []byte("Content-Encoding: aes128gcm\x00"), keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive content key: %w", err)
	}
	nonce, err := deriveKey(ikm, salt, []byte("Content-Encoding: nonce\x00"), nonceLength)
	if err != nil {
		return nil, fmt.Errorf("derive nonce: %w", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	// Single (and therefore last) record: plaintext || 0x02 delimiter.
	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, 0x02)
	ciphertext := gcm.Seal(nil, nonce, record, nil)

	// Header: salt(16) || rs(4) || idlen(1) || keyid (server public key).
	body := make([]byte, 0, saltLength+5+len(serverPub)+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, recordSize)
	body = append(body, byte(len(serverPub)))
	body = append(body, serverPub...)
	body = append(body, ciphertext...)
	return body, nil
}

func deriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}
