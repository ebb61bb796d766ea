// Package jwt emite y verifica credenciales de sesión (JWT HS256).
//
// La clave de firma se deriva del secreto del proceso con HKDF-SHA256, de modo
// que rotar el secreto invalida todas las sesiones emitidas.
package jwt

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// DefaultTTL es la vida de una sesión.
const DefaultTTL = 7 * 24 * time.Hour

const hkdfInfo = "weasl session signing key v1"

// ErrRejected es el único error de Verify: firma, algoritmo, expiración,
// issuer o subject inválidos son indistinguibles para el caller.
var ErrRejected = errors.New("session rejected")

// SessionCredential es un token de sesión emitido. No se persiste.
type SessionCredential struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer es el SessionIssuer.
type Issuer struct {
	Iss string
	TTL time.Duration
	key []byte
	now func() time.Time
}

// Option configura el Issuer.
type Option func(*Issuer)

// WithTTL cambia la vida de las sesiones.
func WithTTL(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.TTL = d
		}
	}
}

// WithClock inyecta el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer deriva la clave HS256 de secret.
func NewIssuer(iss string, secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt: empty secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("jwt: derive key: %w", err)
	}
	i := &Issuer{Iss: iss, TTL: DefaultTTL, key: key, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue firma una sesión para principalID.
func (i *Issuer) Issue(principalID string) (*SessionCredential, error) {
	if principalID == "" {
		return nil, errors.New("jwt: empty subject")
	}
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(i.TTL)
	claims := jwtv5.RegisteredClaims{
		Subject:   principalID,
		Issuer:    i.Iss,
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(exp),
	}
	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("jwt: sign: %w", err)
	}
	return &SessionCredential{Token: signed, Subject: principalID, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify valida firma, algoritmo, expiración e issuer y retorna el subject.
func (i *Issuer) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrRejected
	}
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuedAt(),
		jwtv5.WithTimeFunc(i.now),
	}
	if i.Iss != "" {
		opts = append(opts, jwtv5.WithIssuer(i.Iss))
	}

	var claims jwtv5.RegisteredClaims
	tok, err := jwtv5.ParseWithClaims(token, &claims, func(*jwtv5.Token) (any, error) {
		return i.key, nil
	}, opts...)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrRejected
	}
	return claims.Subject, nil
}
