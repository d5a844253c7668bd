// Package tokens stores calendar credentials encrypted at rest and issues
// session identifiers.
package tokens

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/guided-app/weatherd/internal/store"
)

// Key derivation parameters. Changing any of these invalidates every stored
// ciphertext.
const (
	kdfSalt       = "salt"
	kdfIterations = 100000
	keyLength     = 32
)

const defaultSecret = "your-secret-key-32-chars-long"

// Credentials are the plaintext calendar tokens of one user.
type Credentials struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Service encrypts credentials before handing them to the repository and
// decrypts them on the way out.
type Service struct {
	repo store.TokenRepo
	key  []byte
}

// NewService builds a token service. secret may be empty, in which case the
// ENCRYPTION_KEY environment variable is used, then a development default.
func NewService(repo store.TokenRepo, secret string) *Service {
	if secret == "" {
		secret = os.Getenv("ENCRYPTION_KEY")
	}
	if secret == "" {
		secret = defaultSecret
	}
	key := pbkdf2.Key([]byte(secret), []byte(kdfSalt), kdfIterations, keyLength, sha256.New)
	return &Service{repo: repo, key: key}
}

// Save encrypts and persists a user's credentials.
func (s *Service) Save(ctx context.Context, sessionID string, creds Credentials) error {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	ciphertext, err := s.encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt credentials: %w", err)
	}
	return s.repo.SaveToken(ctx, store.TokenRecord{SessionID: sessionID, Ciphertext: ciphertext})
}

// Get returns a user's credentials, or nil when none are stored.
func (s *Service) Get(ctx context.Context, sessionID string) (*Credentials, error) {
	rec, err := s.repo.GetToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	plaintext, err := s.decrypt(rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials for %s: %w", sessionID, err)
	}
	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("unmarshal credentials for %s: %w", sessionID, err)
	}
	return &creds, nil
}

// Delete removes a user's stored credentials.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	return s.repo.DeleteToken(ctx, sessionID)
}

// GenerateSessionID returns a fresh opaque session identifier.
func GenerateSessionID() string {
	return uuid.NewString()
}

// encrypt produces hex(iv) + ":" + hex(ciphertext) using AES-256-CBC with
// PKCS#7 padding.
func (s *Service) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (s *Service) decrypt(encoded string) ([]byte, error) {
	ivHex, ctHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return nil, fmt.Errorf("malformed ciphertext")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("malformed IV")
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("malformed ciphertext")
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padding)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padding)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
