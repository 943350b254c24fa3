package security

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/pbkdf2"
)

type PBKDF2Encoder struct {
	Secret    string
	Iteration int
	KeyLength int
}

func NewPBKDF2Encoder(secret string, iteration, keyLength int) (*PBKDF2Encoder, error) {
	if secret == "" || iteration <= 0 || keyLength <= 0 {
		return nil, ErrEncoderConfig
	}
	return &PBKDF2Encoder{Secret: secret, Iteration: iteration, KeyLength: keyLength}, nil
}

// NewPBKDF2EncoderFromEnv reads PBKDF2_ENCODER_SECRET, PBKDF2_ENCODER_ITERATION
// and PBKDF2_ENCODER_KEY_LENGTH.
func NewPBKDF2EncoderFromEnv() (*PBKDF2Encoder, error) {
	iteration, err := strconv.Atoi(os.Getenv("PBKDF2_ENCODER_ITERATION"))
	if err != nil {
		return nil, fmt.Errorf("%w: PBKDF2_ENCODER_ITERATION: %v", ErrEncoderConfig, err)
	}
	keyLength, err := strconv.Atoi(os.Getenv("PBKDF2_ENCODER_KEY_LENGTH"))
	if err != nil {
		return nil, fmt.Errorf("%w: PBKDF2_ENCODER_KEY_LENGTH: %v", ErrEncoderConfig, err)
	}
	return NewPBKDF2Encoder(os.Getenv("PBKDF2_ENCODER_SECRET"), iteration, keyLength)
}

func (p PBKDF2Encoder) GetPasswordHash(password string) (string, error) {
	hash := pbkdf2.Key([]byte(password), []byte(p.Secret), p.Iteration, p.KeyLength, sha512.New)
	return base64.StdEncoding.EncodeToString(hash), nil
}

func (p PBKDF2Encoder) IsMatching(hash, password string) bool {
	encoded, _ := p.GetPasswordHash(password)
	return subtle.ConstantTimeCompare([]byte(encoded), []byte(hash)) == 1
}
