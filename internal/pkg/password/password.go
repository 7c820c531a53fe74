// Package password implementa o hash de senhas com suporte a múltiplos esquemas.
// O primeiro esquema do Hasher é o preferido para hashes novos; Verify detecta o
// esquema pelo formato do hash armazenado.
package password

import (
	"errors"
	"unicode/utf8"
)

const (
	// MinLength é o mínimo de caracteres aceito.
	MinLength = 8
	// MaxBytes é o limite do bcrypt; bytes além disso seriam ignorados silenciosamente.
	MaxBytes = 72
)

var (
	ErrTooShort = errors.New("a senha deve ter pelo menos 8 caracteres")
	ErrTooLong  = errors.New("a senha deve ter no máximo 72 bytes")
)

// Scheme é um algoritmo de hash identificável pelo formato da string gerada.
type Scheme interface {
	Name() string
	Identify(hash string) bool
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	// Outdated indica que o hash, embora do próprio esquema, usa parâmetros mais fracos que os atuais.
	Outdated(hash string) bool
}

// Hasher aplica a lista de esquemas suportados.
type Hasher struct {
	schemes []Scheme
}

// NewHasher cria um Hasher. O primeiro esquema é usado para gerar hashes novos.
func NewHasher(preferred Scheme, legacy ...Scheme) *Hasher {
	return &Hasher{schemes: append([]Scheme{preferred}, legacy...)}
}

// NewDefaultHasher usa bcrypt como preferido e aceita pbkdf2-sha256 legado.
func NewDefaultHasher() *Hasher {
	return NewHasher(NewBcrypt(0), NewPBKDF2SHA256(0))
}

// Validate aplica as regras de tamanho antes de qualquer hash.
func Validate(plain string) error {
	if utf8.RuneCountInString(plain) < MinLength {
		return ErrTooShort
	}
	if len(plain) > MaxBytes {
		return ErrTooLong
	}
	return nil
}

// Hash gera o hash com o esquema preferido.
func (h *Hasher) Hash(plain string) (string, error) {
	return h.schemes[0].Hash(plain)
}

// Verify devolve false para senha errada e também para hash em formato desconhecido.
func (h *Hasher) Verify(plain, hash string) bool {
	s := h.identify(hash)
	if s == nil {
		return false
	}
	return s.Verify(plain, hash)
}

// NeedsRehash indica que o hash deveria ser regenerado com o esquema preferido.
func (h *Hasher) NeedsRehash(hash string) bool {
	s := h.identify(hash)
	if s == nil {
		return false
	}
	if s != h.schemes[0] {
		return true
	}
	return s.Outdated(hash)
}

func (h *Hasher) identify(hash string) Scheme {
	for _, s := range h.schemes {
		if s.Identify(hash) {
			return s
		}
	}
	return nil
}
