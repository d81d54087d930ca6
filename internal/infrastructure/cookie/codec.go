package cookie

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/vculp/identity-server/internal/domain"
)

// KeySize is the size of the A256GCM content encryption key
const KeySize = 32

// ErrInvalidTicket is returned when a cookie value cannot be decrypted or parsed
var ErrInvalidTicket = errors.New("invalid authentication ticket")

// Codec turns tickets into cookie values and back
type Codec interface {
	Encode(ticket *domain.Ticket) (string, error)
	Decode(value string) (*domain.Ticket, error)
}

// JWECodec encrypts tickets as compact JWE using direct A256GCM encryption
type JWECodec struct {
	key       []byte
	encrypter jose.Encrypter
}

// NewJWECodec creates a codec for the given 32 byte key
func NewJWECodec(key []byte) (*JWECodec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cookie encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: key}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating encrypter: %w", err)
	}
	return &JWECodec{key: key, encrypter: enc}, nil
}

// GenerateKey returns a random key suitable for NewJWECodec
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *JWECodec) Encode(ticket *domain.Ticket) (string, error) {
	payload, err := json.Marshal(ticket)
	if err != nil {
		return "", fmt.Errorf("marshaling ticket: %w", err)
	}

	obj, err := c.encrypter.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypting ticket: %w", err)
	}
	return obj.CompactSerialize()
}

func (c *JWECodec) Decode(value string) (*domain.Ticket, error) {
	obj, err := jose.ParseEncrypted(value,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	payload, err := obj.Decrypt(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	var ticket domain.Ticket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	return &ticket, nil
}
