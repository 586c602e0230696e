package push

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"testing"
)

// testRecipient simulates the browser side of a subscription: it owns the
// p256dh key pair and auth secret and can decrypt what the service sends.
type testRecipient struct {
	key    *ecdh.PrivateKey
	auth   []byte
	p256dh string
	authB  string
}

func newTestRecipient(t *testing.T) *testRecipient {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate recipient key: %v", err)
	}
	auth := make([]byte, authSecretSize)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}
	return &testRecipient{
		key:    key,
		auth:   auth,
		p256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		authB:  base64.RawURLEncoding.EncodeToString(auth),
	}
}

// decrypt reverses the aes128gcm content coding per RFC 8188/8291.
func (r *testRecipient) decrypt(t *testing.T, body []byte) []byte {
	t.Helper()
	if len(body) < saltLength+5 {
		t.Fatalf("body too short: %d bytes", len(body))
	}
	salt := body[:saltLength]
	rs := binary.BigEndian.Uint32(body[saltLength : saltLength+4])
	if rs != recordSize {
		t.Fatalf("record size = %d, want %d", rs, recordSize)
	}
	idLen := int(body[saltLength+4])
	if idLen != 65 {
		t.Fatalf("keyid length = %d, want 65", idLen)
	}
	serverPubBytes := body[saltLength+5 : saltLength+5+idLen]
	ciphertext := body[saltLength+5+idLen:]

	serverPub, err := ecdh.P256().NewPublicKey(serverPubBytes)
	if err != nil {
		t.Fatalf("parse server public key: %v", err)
	}
	shared, err := r.key.ECDH(serverPub)
	if err != nil {
		t.Fatalf("recipient ECDH: %v", err)
	}

	keyInfo := append([]byte("WebPush: info\x00"), r.key.PublicKey().Bytes()...)
	keyInfo = append(keyInfo, serverPubBytes...)
	ikm, err := deriveKey(shared, r.auth, keyInfo, 32)
	if err != nil {
		t.Fatalf("derive IKM: %v", err)
	}
	cek, err := deriveKey(ikm, salt, []byte("Content-Encoding: aes128gcm\x00"), keyLength)
	if err != nil {
		t.Fatalf("derive CEK: %v", err)
	}
	nonce, err := deriveKey(ikm, salt, []byte("Content-Encoding: nonce\x00"), nonceLength)
	if err != nil {
		t.Fatalf("derive nonce: %v", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		t.Fatalf("aes: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("gcm: %v", err)
	}
	record, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		t.Fatalf("decrypt record: %v", err)
	}

	if len(record) == 0 || record[len(record)-1] != 0x02 {
		t.Fatalf("record missing last-record padding delimiter")
	}
	return record[:len(record)-1]
}

func TestEncryptPayloadRoundTrip(t *testing.T) {
	r := newTestRecipient(t)
	plaintext := []byte(`{"title":"Eye break","body":"Look away from the screen."}`)

	body, err := encryptPayload(plaintext, r.p256dh, r.authB)
	if err != nil {
		t.Fatalf("encrypt payload: %v", err)
	}

	got := r.decrypt(t, body)
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestEncryptPayloadUniqueCiphertext(t *testing.T) {
	r := newTestRecipient(t)
	plaintext := []byte("same message")

	a, err := encryptPayload(plaintext, r.p256dh, r.authB)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := encryptPayload(plaintext, r.p256dh, r.authB)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	// Fresh ephemeral key and salt per message.
	if bytes.Equal(a, b) {
		t.Error("expected distinct bodies for repeated encryption")
	}
}

func TestEncryptPayloadRejectsBadKeys(t *testing.T) {
	r := newTestRecipient(t)

	if _, err := encryptPayload([]byte("x"), "!!!", r.authB); err == nil {
		t.Error("expected error for malformed p256dh")
	}
	shortAuth := base64.RawURLEncoding.EncodeToString([]byte("short"))
	if _, err := encryptPayload([]byte("x"), r.p256dh, shortAuth); err == nil {
		t.Error("expected error for wrong-length auth secret")
	}
	notAPoint := base64.RawURLEncoding.EncodeToString(make([]byte, 65))
	if _, err := encryptPayload([]byte("x"), notAPoint, r.authB); err == nil {
		t.Error("expected error for invalid curve point")
	}
}

func TestEncryptPayloadTooLarge(t *testing.T) {
	r := newTestRecipient(t)
	big := make([]byte, maxPlaintext+1)
	if _, err := encryptPayload(big, r.p256dh, r.authB); err == nil {
		t.Error("expected error for oversized payload")
	}
}
