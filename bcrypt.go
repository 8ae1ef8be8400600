package auth

import (
	"errors"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash using the build default cost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, passwordHashCost())
}

// HashPasswordWithCost will generate a password hash with the given bcrypt cost.
// A zero cost selects bcrypt.DefaultCost.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", newPasswordTooLong()
	}
	return string(h), err
}

func newPasswordTooLong() *goerrors.Error {
	return goerrors.NewValidation("request body validation failed", goerrors.FieldError{
		Field:   "password",
		Message: errPasswordTooManyBytes.Error(),
	}).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// compareDummyHash burns the same time as a real compare so lookups for
// unknown accounts are not distinguishable by latency
func compareDummyHash(password string) {
	dummyHashOnce.Do(func() {
		dummyHash = RandomPasswordHash()
	})
	_ = ComparePasswordAndHash(password, dummyHash)
}

// BcryptHasher implements PasswordAuthenticator with a fixed cost
type BcryptHasher struct {
	Cost int
}

func (b BcryptHasher) HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, b.Cost)
}

func (b BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

var _ PasswordAuthenticator = BcryptHasher{}
