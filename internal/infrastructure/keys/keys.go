package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	josev3 "github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v4"
	"go.uber.org/zap"
)

const (
	// Algorithm is the JWS algorithm of every token the server signs
	Algorithm = "RS256"

	keyBits = 2048
)

// SigningKey is the RSA key used for access and identity tokens
type SigningKey struct {
	Private *rsa.PrivateKey
	KeyID   string
}

// Generate creates a new in-memory signing key
func Generate() (*SigningKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return newSigningKey(priv), nil
}

// Load reads a PEM encoded RSA key from path. When path is empty the key is
// generated and kept in memory only; when the file does not exist a new key
// is generated and written to path.
func Load(path string, logger *zap.Logger) (*SigningKey, error) {
	if path == "" {
		logger.Warn("no signing key path configured, using an ephemeral signing key")
		return Generate()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		key, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := key.save(path); err != nil {
			return nil, err
		}
		logger.Info("generated signing key", zap.String("path", path), zap.String("kid", key.KeyID))
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}

	priv, err := parsePEM(data)
	if err != nil {
		return nil, fmt.Errorf("parsing signing key %s: %w", path, err)
	}

	key := newSigningKey(priv)
	logger.Info("loaded signing key", zap.String("path", path), zap.String("kid", key.KeyID))
	return key, nil
}

func newSigningKey(priv *rsa.PrivateKey) *SigningKey {
	sum := sha256.Sum256(priv.N.Bytes())
	return &SigningKey{Private: priv, KeyID: hex.EncodeToString(sum[:16])}
}

func parsePEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", k)
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}
}

func (k *SigningKey) save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.Private),
	})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing signing key: %w", err)
	}
	return nil
}

// Public returns the public half of the key
func (k *SigningKey) Public() *rsa.PublicKey {
	return &k.Private.PublicKey
}

// JWK returns the private key as a go-jose v4 JSON Web Key
func (k *SigningKey) JWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       k.Private,
		KeyID:     k.KeyID,
		Algorithm: Algorithm,
		Use:       "sig",
	}
}

// FositeJWK returns the private key as a go-jose v3 JSON Web Key, the type
// the token strategies sign with. Carrying the key id puts "kid" in token
// headers.
func (k *SigningKey) FositeJWK() *josev3.JSONWebKey {
	return &josev3.JSONWebKey{
		Key:       k.Private,
		KeyID:     k.KeyID,
		Algorithm: Algorithm,
		Use:       "sig",
	}
}

// PublicJWKS returns the key set published at the JWKS endpoint
func (k *SigningKey) PublicJWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       k.Public(),
			KeyID:     k.KeyID,
			Algorithm: Algorithm,
			Use:       "sig",
		}},
	}
}
