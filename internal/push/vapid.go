package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// vapidTokenTTL is the validity of a signed VAPID token. The Web Push spec
// caps it at 24h; short-lived tokens limit replay.
const vapidTokenTTL = 12 * time.Hour

// Signer produces VAPID authorization material for a push-service origin.
// The JWT audience is origin-specific, so a header must be built per
// destination origin and cannot be shared across push services. Implementations
// hold the application private key; swapping in a KMS/HSM-backed signer must
// not require touching dispatch logic.
type Signer interface {
	// Authorization returns the full Authorization header value
	// ("vapid t=<jwt>, k=<publicKey>") for the given audience origin.
	Authorization(audience string) (string, error)
	// PublicKey returns the base64url-encoded application public key.
	PublicKey() string
}

type ecdsaSigner struct {
	key       *ecdsa.PrivateKey
	publicKey string
	subject   string
}

// NewECDSASigner builds a Signer from a base64url-encoded P-256 private key
// scalar and a contact subject (mailto: or https: URI). The private key
// material stays inside the signer and is never logged.
func NewECDSASigner(privateKey, subject string) (Signer, error) {
	raw, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode VAPID private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("VAPID private key must be 32 bytes, got %d", len(raw))
	}
	if subject == "" {
		return nil, fmt.Errorf("VAPID subject is required")
	}
	if !strings.HasPrefix(subject, "mailto:") && !strings.HasPrefix(subject, "https://") {
		subject = "mailto:" + subject
	}

	curve := elliptic.P256()
	x, y := curve.ScalarBaseMult(raw)
	key := &ecdsa.PrivateKey{
		D: new(big.Int).SetBytes(raw),
		PublicKey: ecdsa.PublicKey{
			Curve: curve,
			X:     x,
			Y:     y,
		},
	}

	pub := base64.RawURLEncoding.EncodeToString(elliptic.Marshal(curve, x, y))
	return &ecdsaSigner{key: key, publicKey: pub, subject: subject}, nil
}

func (s *ecdsaSigner) Authorization(audience string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": audience,
		"exp": time.Now().Add(vapidTokenTTL).Unix(),
		"sub": s.subject,
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign VAPID token: %w", err)
	}
	return fmt.Sprintf("vapid t=%s, k=%s", signed, s.publicKey), nil
}

func (s *ecdsaSigner) PublicKey() string {
	return s.publicKey
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)

	priv := key.D.Bytes()
	if len(priv) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(priv):], priv)
		priv = padded
	}
	privateKey = base64.RawURLEncoding.EncodeToString(priv)

	return publicKey, privateKey, nil
}

// endpointOrigin extracts the push service origin ("scheme://host") that the
// VAPID token audience must name.
func endpointOrigin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no origin", endpoint)
	}
	return u.Scheme + "://" + u.Host, nil
}

// decodeKey accepts base64url with or without padding, plus standard base64,
// since browsers and clients are inconsistent about subscription key encoding.
func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("invalid base64 key")
}
