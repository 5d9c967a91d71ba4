package exchange

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// JWTSigner mints short-lived RS256 bearer tokens for exchanges whose
// private REST endpoints require a signed JWT per request (e.g. Coinbase
// Advanced Trade). Ported from broker_coinbase.go's mintCoinbaseJWT,
// generalized away from the hard-coded Coinbase audience/subject.
type JWTSigner struct {
	keyName    string
	audience   string
	privateKey *rsa.PrivateKey
}

// NewJWTSigner parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8)
// and binds it to keyName/audience for subsequent Sign calls.
func NewJWTSigner(keyName, audience, privatePEM string) (*JWTSigner, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return nil, errors.New("exchange: invalid private key (no PEM block)")
	}
	var priv *rsa.PrivateKey
	switch block.Type {
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("exchange: not an RSA private key")
		}
		priv = rsaKey
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		priv = k
	default:
		return nil, fmt.Errorf("exchange: unsupported key type: %s", block.Type)
	}
	return &JWTSigner{keyName: keyName, audience: audience, privateKey: priv}, nil
}

// Sign mints a token valid for ttl, suitable for an "Authorization:
// Bearer ..." header.
func (s *JWTSigner) Sign(ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": s.keyName,
		"aud": s.audience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"nbf": now.Add(-5 * time.Second).Unix(),
		"jti": uuid.New().String(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(s.privateKey)
}
