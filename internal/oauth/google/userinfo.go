// Package google valida un access token de Google contra el endpoint OpenID
// userinfo y retorna la identidad asociada.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultUserInfoURL es el endpoint userinfo de Google.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	// ErrInvalidToken indica que Google rechazó el token (401/403).
	ErrInvalidToken = errors.New("google: invalid token")
	// ErrUnavailable indica un fallo de red o respuesta inesperada del proveedor.
	ErrUnavailable = errors.New("google: provider unavailable")
)

// UserInfo es el subconjunto de claims que usa weasl.
type UserInfo struct {
	Sub           string   `json:"sub"`
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
	Picture       string   `json:"picture"`
}

// Verified reporta si Google afirma que el email está verificado.
func (u *UserInfo) Verified() bool { return bool(u.EmailVerified) }

// flexBool acepta true/false o "true"/"false" (Google usa ambos según endpoint).
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	pv, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = flexBool(pv)
	return nil
}

// Provider consulta el endpoint userinfo.
type Provider struct {
	UserInfoURL string
	http        *http.Client
}

// New crea un Provider. url vacío usa DefaultUserInfoURL; timeout 0 usa 10s.
func New(url string, timeout time.Duration) *Provider {
	if url == "" {
		url = DefaultUserInfoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{UserInfoURL: url, http: &http.Client{Timeout: timeout}}
}

// FetchUserInfo retorna la identidad del token. ErrInvalidToken si Google lo
// rechaza; ErrUnavailable ante cualquier otro fallo.
func (p *Provider) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrUnavailable, err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo without sub", ErrUnavailable)
	}
	return &info, nil
}
