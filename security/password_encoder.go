package security

import "errors"

var ErrEncoderConfig = errors.New("password encoder is not configured")

// PasswordEncoder hashes passwords and checks candidates against a hash.
type PasswordEncoder interface {
	GetPasswordHash(password string) (string, error)
	IsMatching(hash, password string) bool
}
