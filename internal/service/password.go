package service

import (
	"github.com/alexedwards/argon2id"
)

// PasswordHasher hashea y verifica contraseñas en texto plano.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) (bool, error)
}

// Argon2Hasher implementa PasswordHasher con argon2id (salt aleatorio por hash).
type Argon2Hasher struct {
	params *argon2id.Params
}

func NewArgon2Hasher(memoryKB, iterations uint32, parallelism uint8) *Argon2Hasher {
	if memoryKB == 0 {
		memoryKB = 64 * 1024
	}
	if iterations == 0 {
		iterations = 2
	}
	if parallelism == 0 {
		parallelism = 2
	}
	return &Argon2Hasher{
		params: &argon2id.Params{
			Memory:      memoryKB,
			Iterations:  iterations,
			Parallelism: parallelism,
			SaltLength:  16,
			KeyLength:   32,
		},
	}
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	return argon2id.CreateHash(plaintext, h.params)
}

// Verify compara en tiempo constante; un hash malformado devuelve error.
func (h *Argon2Hasher) Verify(hash, plaintext string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plaintext, hash)
}
