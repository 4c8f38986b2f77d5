package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const minFieldKeyLength = 16

// 固定盐值：同一部署的所有实例必须推导出相同的列密钥
var fieldKeySalt = []byte("pcq-backend/party-id/v1")

var (
	ErrFieldKeyTooShort = fmt.Errorf("field encryption key must be at least %d characters", minFieldKeyLength)
	ErrCiphertext       = errors.New("malformed field ciphertext")
)

// FieldEncryptor 对单个敏感列做透明加解密。
// 未配置密钥时 Encode/Decode 原样返回，保证历史明文数据仍可读取。
type FieldEncryptor struct {
	aead cipher.AEAD
}

// NewFieldEncryptor 只应在配置加载完成后调用一次。空 key 得到直通模式的加密器。
func NewFieldEncryptor(key string) (*FieldEncryptor, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return &FieldEncryptor{}, nil
	}
	if len(key) < minFieldKeyLength {
		return nil, ErrFieldKeyTooShort
	}

	derived, err := scrypt.Key([]byte(key), fieldKeySalt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive field key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("init field cipher: %w", err)
	}
	return &FieldEncryptor{aead: aead}, nil
}

func (e *FieldEncryptor) Enabled() bool {
	return e != nil && e.aead != nil
}

func (e *FieldEncryptor) Encode(plaintext string) (string, error) {
	if !e.Enabled() || plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *FieldEncryptor) Decode(ciphertext string) (string, error) {
	if !e.Enabled() || ciphertext == "" {
		return ciphertext, nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCiphertext
	}
	if len(raw) < e.aead.NonceSize()+e.aead.Overhead() {
		return "", ErrCiphertext
	}
	nonce, sealed := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plain, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
