// Package token define los namespaces de tokens de un solo uso: formato,
// vida útil y regla de comparación de cada canal.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

// ErrMalformed indica que el string no cumple el formato del namespace.
var ErrMalformed = errors.New("malformed token")

// Namespace describe un espacio de tokens. La regla de comparación se expresa
// como normalización: dos valores son iguales si sus formas normalizadas lo son,
// y el storage solo compara formas normalizadas.
type Namespace interface {
	Kind() repository.TokenKind
	Lifetime() time.Duration
	// Candidate sortea un valor nuevo, ya normalizado.
	Candidate() (string, error)
	// Normalize lleva un valor recibido a su forma canónica de comparación.
	Normalize(s string) string
	// Validate retorna ErrMalformed si el valor normalizado no tiene el formato.
	Validate(s string) error
}

// ─── Email ───

const EmailLifetime = 12 * time.Hour

// Email: UUID v4 canónico, comparación case-sensitive, 12h.
type Email struct{}

func (Email) Kind() repository.TokenKind { return repository.TokenEmail }
func (Email) Lifetime() time.Duration    { return EmailLifetime }

func (Email) Candidate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (Email) Normalize(s string) string { return strings.TrimSpace(s) }

// Validate acepta solo la forma canónica (36 caracteres, minúsculas, con guiones).
func (Email) Validate(s string) error {
	if len(s) != 36 {
		return ErrMalformed
	}
	id, err := uuid.Parse(s)
	if err != nil || id.String() != s {
		return ErrMalformed
	}
	return nil
}

// ─── SMS ───

// SMSAlphabet incluye caracteres visualmente ambiguos (0/o, 1/l); se conserva
// para que los códigos ya emitidos sigan validando.
const SMSAlphabet = "0123456789abcdefghijklmonpqrstuvwxyz"

const (
	SMSLength   = 6
	SMSLifetime = time.Hour
)

// SMS: 6 caracteres de SMSAlphabet, comparación case-insensitive, 1h.
type SMS struct{}

func (SMS) Kind() repository.TokenKind { return repository.TokenSMS }
func (SMS) Lifetime() time.Duration    { return SMSLifetime }

func (SMS) Candidate() (string, error) { return RandomString(SMSAlphabet, SMSLength) }

func (SMS) Normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (SMS) Validate(s string) error {
	if len(s) != SMSLength {
		return ErrMalformed
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(SMSAlphabet, s[i]) < 0 {
			return ErrMalformed
		}
	}
	return nil
}
