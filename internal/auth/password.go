package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// ErrPasswordTooLong is returned by Hash when the plaintext exceeds what the
// configured algorithm can absorb (72 bytes for bcrypt).
var ErrPasswordTooLong = errors.New("password is too long")

// Argon2id parameters for newly created hashes. Verification reads the
// parameters from the stored hash instead.
const (
	argonMemory      = 19 * 1024 // KiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16

	// Upper bounds accepted when parsing stored hashes.
	argonMaxMemory     = 256 * 1024
	argonMaxIterations = 16
	argonMaxKeyLength  = 128
)

// PasswordHasher hashes and verifies passwords. New hashes use the
// configured algorithm; Verify accepts any supported algorithm so existing
// hashes keep working after the configuration changes.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
}

// NewPasswordHasher returns a hasher for algorithm ("bcrypt" or "argon2id").
// A bcryptCost of zero selects bcrypt.DefaultCost.
func NewPasswordHasher(algorithm string, bcryptCost int) (*PasswordHasher, error) {
	switch algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", algorithm)
	}

	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside %d..%d", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return &PasswordHasher{algorithm: algorithm, bcryptCost: bcryptCost}, nil
}

// Algorithm reports the algorithm used for new hashes.
func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// Hash returns a salted one-way hash of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if h.algorithm == AlgorithmArgon2id {
		return hashArgon2id(plaintext)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches encoded. Malformed or unknown
// hashes never match.
func (h *PasswordHasher) Verify(plaintext, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(plaintext, encoded)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext)) == nil
	default:
		return false
	}
}

// hashArgon2id produces a PHC-format string:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<hash>
func hashArgon2id(plaintext string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2id(plaintext, encoded string) bool {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != AlgorithmArgon2id {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}
	if iterations < 1 || iterations > argonMaxIterations ||
		parallelism < 1 ||
		memory < 8*uint32(parallelism) || memory > argonMaxMemory {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 || len(expected) > argonMaxKeyLength {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
