package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key: base64url, 65-byte uncompressed P-256 point.
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key: base64url, 32-byte P-256 scalar.
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestECDSASignerAuthorization(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	signer, err := NewECDSASigner(priv, "mailto:ops@pausa.app")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	if signer.PublicKey() != pub {
		t.Errorf("derived public key = %q, want %q", signer.PublicKey(), pub)
	}

	const audience = "https://fcm.googleapis.com"
	authz, err := signer.Authorization(audience)
	if err != nil {
		t.Fatalf("authorization: %v", err)
	}

	if !strings.HasPrefix(authz, "vapid t=") {
		t.Fatalf("authorization %q missing vapid prefix", authz)
	}
	if !strings.Contains(authz, ", k="+pub) {
		t.Errorf("authorization %q missing public key parameter", authz)
	}

	// The embedded JWT must verify against the application public key and
	// carry the audience, subject, and a bounded expiry.
	tokenStr := strings.TrimPrefix(authz, "vapid t=")
	tokenStr = tokenStr[:strings.Index(tokenStr, ",")]

	pubBytes, _ := base64.RawURLEncoding.DecodeString(pub)
	x, y := elliptic.Unmarshal(elliptic.P256(), pubBytes)
	verifyKey := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (any, error) {
		return verifyKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil {
		t.Fatalf("parse VAPID JWT: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("expected valid token")
	}

	if got := claims["aud"]; got != audience {
		t.Errorf("aud = %v, want %q", got, audience)
	}
	if got := claims["sub"]; got != "mailto:ops@pausa.app" {
		t.Errorf("sub = %v, want mailto:ops@pausa.app", got)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		t.Fatal("exp claim missing")
	}
	if time.Unix(int64(exp), 0).After(time.Now().Add(12*time.Hour + time.Minute)) {
		t.Error("expiry exceeds 12h bound")
	}
}

func TestNewECDSASignerNormalizesSubject(t *testing.T) {
	_, priv, _ := GenerateVAPIDKeys()

	signer, err := NewECDSASigner(priv, "ops@pausa.app")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	authz, err := signer.Authorization("https://updates.push.services.mozilla.com")
	if err != nil {
		t.Fatalf("authorization: %v", err)
	}
	if !strings.HasPrefix(authz, "vapid t=") {
		t.Errorf("unexpected header %q", authz)
	}
}

func TestNewECDSASignerRejectsBadKey(t *testing.T) {
	if _, err := NewECDSASigner("not-base64!!!", "mailto:ops@pausa.app"); err == nil {
		t.Error("expected error for malformed key")
	}
	short := base64.RawURLEncoding.EncodeToString([]byte("short"))
	if _, err := NewECDSASigner(short, "mailto:ops@pausa.app"); err == nil {
		t.Error("expected error for wrong-length key")
	}
	_, priv, _ := GenerateVAPIDKeys()
	if _, err := NewECDSASigner(priv, ""); err == nil {
		t.Error("expected error for missing subject")
	}
}

func TestEndpointOrigin(t *testing.T) {
	got, err := endpointOrigin("https://fcm.googleapis.com/fcm/send/abc123")
	if err != nil {
		t.Fatalf("endpoint origin: %v", err)
	}
	if got != "https://fcm.googleapis.com" {
		t.Errorf("origin = %q, want https://fcm.googleapis.com", got)
	}

	if _, err := endpointOrigin("not-a-url"); err == nil {
		t.Error("expected error for endpoint without origin")
	}
}
