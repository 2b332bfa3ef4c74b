// Package auth — credential hashing, session cookies, and identity middleware.
//
// PASSWORD HASHING:
// We hash passwords with Argon2id, the memory-hard key-derivation function.
// Memory-hard means an attacker can't cheaply parallelise brute-forcing on
// GPUs — each guess needs tens of megabytes of RAM, not just CPU cycles.
//
// Unlike bcrypt, Argon2 does not embed the salt in its output, so we manage
// the encoding ourselves. The stored format is:
//
//	<hex salt>.<hex derived key>
//	 16 chars   64 chars
//
// A fresh random salt is generated on EVERY call to Hash, so two users with
// the same password (or the same user hashing twice) never produce the same
// stored string. Verify splits the stored string, re-derives the key from
// the candidate password with the same salt and parameters, and compares in
// constant time.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
//
// The defaults follow the RFC 9106 "memory-constrained" recommendation:
// 64 MiB of memory, 3 passes, 2 lanes, 32-byte output key. Tune memory up
// if your servers have headroom — more memory per hash hurts attackers far
// more than it hurts you.
const (
	saltLength = 8  // bytes of salt entropy; rendered as 16 hex characters
	keyLength  = 32 // derived key bytes; rendered as 64 hex characters

	defaultMemory  = 64 * 1024 // KiB (64 MiB)
	defaultTime    = 3         // passes over memory
	defaultThreads = 2         // lanes
)

// PasswordService derives and verifies password hashes.
//
// It's a struct (not free functions) so the Argon2 parameters can be
// injected in tests — deriving with 64 MiB per call makes a test suite
// crawl, and the logic under test doesn't care about the work factor.
type PasswordService struct {
	memory  uint32
	time    uint32
	threads uint8
}

// NewPasswordService creates a PasswordService with production parameters.
func NewPasswordService() *PasswordService {
	return &PasswordService{
		memory:  defaultMemory,
		time:    defaultTime,
		threads: defaultThreads,
	}
}

// NewPasswordServiceForTest creates a PasswordService with deliberately
// weak parameters (1 MiB, 1 pass). Hashing takes microseconds instead of
// hundreds of milliseconds.
//
// Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{
		memory:  1024,
		time:    1,
		threads: 1,
	}
}

// Hash derives a storable credential string from a plaintext password.
//
// Each call generates a fresh 8-byte salt from crypto/rand, so the output
// differs on every invocation even for identical input. Store the returned
// string directly; it is self-contained (salt + key).
func (p *PasswordService) Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.time, p.memory, p.threads, keyLength)

	return hex.EncodeToString(salt) + "." + hex.EncodeToString(key), nil
}

// Verify reports whether candidate matches the stored encoded credential.
//
// FAILS CLOSED: a malformed encoded string (missing delimiter, empty salt
// or key segment, non-hex content) returns false — never an error, never a
// panic. A login path must not be crashable by a corrupt database row.
//
// TIMING SAFETY: the stored and derived keys are compared with
// subtle.ConstantTimeCompare after an explicit length check, so the
// comparison time does not depend on where the first differing byte is.
// The candidate plaintext, the salt, and the derived bytes are never
// logged.
func (p *PasswordService) Verify(encoded, candidate string) bool {
	saltHex, keyHex, found := strings.Cut(encoded, ".")
	if !found || saltHex == "" || keyHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(keyHex)
	if err != nil {
		return false
	}

	derived := argon2.IDKey([]byte(candidate), salt, p.time, p.memory, p.threads, keyLength)

	if len(stored) != len(derived) {
		return false
	}
	return subtle.ConstantTimeCompare(stored, derived) == 1
}
