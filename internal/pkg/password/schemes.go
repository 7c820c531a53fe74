package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Bcrypt é o esquema preferido.
type Bcrypt struct {
	cost int
}

// NewBcrypt cria o esquema; cost <= 0 usa bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Name() string { return "bcrypt" }

func (b *Bcrypt) Identify(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", fmt.Errorf("falha ao gerar hash bcrypt: %w", err)
	}
	return string(out), nil
}

func (b *Bcrypt) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func (b *Bcrypt) Outdated(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err == nil && cost < b.cost
}

// PBKDF2SHA256 lê e gera hashes no formato $pbkdf2-sha256$<rounds>$<salt>$<checksum>,
// com salt e checksum em base64 "adaptado" ('.' no lugar de '+', sem padding).
type PBKDF2SHA256 struct {
	rounds int
}

const (
	pbkdf2Prefix        = "$pbkdf2-sha256$"
	pbkdf2DefaultRounds = 29000
	pbkdf2SaltSize      = 16
	pbkdf2KeySize       = 32
)

var adaptedB64 = base64.RawStdEncoding

// NewPBKDF2SHA256 cria o esquema; rounds <= 0 usa 29000.
func NewPBKDF2SHA256(rounds int) *PBKDF2SHA256 {
	if rounds <= 0 {
		rounds = pbkdf2DefaultRounds
	}
	return &PBKDF2SHA256{rounds: rounds}
}

func (p *PBKDF2SHA256) Name() string { return "pbkdf2-sha256" }

func (p *PBKDF2SHA256) Identify(hash string) bool {
	return strings.HasPrefix(hash, pbkdf2Prefix)
}

func (p *PBKDF2SHA256) Hash(plain string) (string, error) {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("falha ao gerar salt: %w", err)
	}
	sum := pbkdf2.Key([]byte(plain), salt, p.rounds, pbkdf2KeySize, sha256.New)
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, p.rounds, encodeAB64(salt), encodeAB64(sum)), nil
}

func (p *PBKDF2SHA256) Verify(plain, hash string) bool {
	rounds, salt, sum, ok := parsePBKDF2(hash)
	if !ok {
		return false
	}
	got := pbkdf2.Key([]byte(plain), salt, rounds, len(sum), sha256.New)
	return subtle.ConstantTimeCompare(got, sum) == 1
}

func (p *PBKDF2SHA256) Outdated(hash string) bool {
	rounds, _, _, ok := parsePBKDF2(hash)
	return ok && rounds < p.rounds
}

func parsePBKDF2(hash string) (int, []byte, []byte, bool) {
	parts := strings.Split(strings.TrimPrefix(hash, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return 0, nil, nil, false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds < 1 {
		return 0, nil, nil, false
	}
	salt, err := decodeAB64(parts[1])
	if err != nil {
		return 0, nil, nil, false
	}
	sum, err := decodeAB64(parts[2])
	if err != nil || len(sum) == 0 {
		return 0, nil, nil, false
	}
	return rounds, salt, sum, true
}

func encodeAB64(b []byte) string {
	return strings.ReplaceAll(adaptedB64.EncodeToString(b), "+", ".")
}

func decodeAB64(s string) ([]byte, error) {
	return adaptedB64.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
