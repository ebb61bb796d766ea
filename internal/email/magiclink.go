package email

import (
	"errors"
	"fmt"
	"net/url"
)

// TokenParam es el parámetro de query que lleva el token en el magic link.
const TokenParam = "w_token"

// ErrNoMagicLinkBase indica que ni el tenant ni la config definen un destino.
var ErrNoMagicLinkBase = errors.New("no magic link base url configured")

// MagicLink agrega w_token=<token> a base conservando el resto de la query.
// Un w_token previo se reemplaza.
func MagicLink(base, token string) (string, error) {
	if base == "" {
		return "", ErrNoMagicLinkBase
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("email: parse magic link base: %w", err)
	}
	q := u.Query()
	q.Set(TokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
