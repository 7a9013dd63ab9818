package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"coinpilot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Keys is a user's decrypted exchange credential pair.
type Keys struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

var ErrNotLinked = errors.New("exchange link not found")

// Store resolves and decrypts per-user exchange credentials. Any failure
// excludes the user for the current tick only.
type Store interface {
	ForUser(ctx context.Context, userID int64) (Keys, error)
}

// PgStore reads exchange_links rows: an AES-GCM sealed JSON blob per user,
// nonce prepended to the ciphertext.
type PgStore struct {
	tm   db.TxManager
	aead cipher.AEAD
}

func NewPgStore(tm db.TxManager, hexKey string) (*PgStore, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "credential key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "credential cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "credential gcm")
	}
	return &PgStore{tm: tm, aead: aead}, nil
}

func (s *PgStore) ForUser(ctx context.Context, userID int64) (k Keys, err error) {
	defer func() {
		if err != nil && !errors.Is(err, ErrNotLinked) {
			err = fmt.Errorf("Credentials.ForUser: %w", err)
		}
	}()

	var payload []byte
	err = s.tm.Conn().QueryRow(ctx,
		`SELECT payload FROM exchange_links WHERE user_id = $1`, userID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Keys{}, ErrNotLinked
	}
	if err != nil {
		return Keys{}, err
	}

	plain, err := s.decrypt(payload)
	if err != nil {
		return Keys{}, err
	}
	if err = sonic.Unmarshal(plain, &k); err != nil {
		return Keys{}, err
	}
	return k, nil
}

func (s *PgStore) decrypt(payload []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(payload) < ns {
		return nil, errors.New("credential payload too short")
	}
	plain, err := s.aead.Open(nil, payload[:ns], payload[ns:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}
	return plain, nil
}

// Seal is the write-side counterpart used by the link-management surface (and
// tests): sonic-encode the keys and seal them under a fresh nonce.
func (s *PgStore) Seal(k Keys, nonce []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, errors.Errorf("nonce must be %d bytes", s.aead.NonceSize())
	}
	plain, err := sonic.Marshal(k)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, nonce...), s.aead.Seal(nil, nonce, plain, nil)...), nil
}
