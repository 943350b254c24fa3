package security

import "golang.org/x/crypto/bcrypt"

type BcryptEncoder struct {
	Cost int
}

// NewBcryptEncoder returns an encoder using cost, or bcrypt.DefaultCost when
// cost is outside the range bcrypt accepts.
func NewBcryptEncoder(cost int) *BcryptEncoder {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptEncoder{Cost: cost}
}

func (e BcryptEncoder) GetPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), e.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (BcryptEncoder) IsMatching(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
