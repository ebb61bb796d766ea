// Package dto define las representaciones JSON de la API.
package dto

import (
	"sort"
	"strconv"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/tenant"
)

// Property es una propiedad de tenant.
type Property struct {
	Namespace string           `json:"namespace"`
	Name      string           `json:"name"`
	Type      types.ValueType  `json:"type"`
	Value     types.TypedValue `json:"value"`
}

// Tenant es la vista de un tenant. ClientSecret solo se emite a sus admins.
type Tenant struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Properties   []Property `json:"properties"`
}

// TenantFrom arma la vista. El id se emite como string (snowflake excede la
// precisión de un número JSON).
func TenantFrom(t *repository.Tenant, props tenant.Properties, private bool) Tenant {
	out := Tenant{
		ID:         strconv.FormatInt(t.ID, 10),
		ClientID:   t.ClientID,
		CreatedAt:  t.CreatedAt,
		Properties: []Property{},
	}
	if private {
		out.ClientSecret = t.ClientSecret
	}
	for ns, byName := range props {
		for name, v := range byName {
			out.Properties = append(out.Properties, Property{
				Namespace: string(ns),
				Name:      name,
				Type:      v.Type,
				Value:     v,
			})
		}
	}
	sort.Slice(out.Properties, func(i, j int) bool {
		a, b := out.Properties[i], out.Properties[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
	return out
}

// EndUser es la vista de un principal. Attributes lleva solo los valores
// decodificados; TrustedAttributes lista cuáles fueron escritos con el secret.
type EndUser struct {
	ID                string                      `json:"id"`
	Email             *string                     `json:"email,omitempty"`
	PhoneNumber       *string                     `json:"phone_number,omitempty"`
	Attributes        map[string]types.TypedValue `json:"attributes"`
	TrustedAttributes []string                    `json:"trusted_attributes"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
	LastLoginAt       *time.Time                  `json:"last_login_at"`
}

func EndUserFrom(p *repository.Principal) EndUser {
	out := EndUser{
		ID:                p.ID,
		Email:             p.Email,
		PhoneNumber:       p.Phone,
		Attributes:        make(map[string]types.TypedValue, len(p.Attributes)),
		TrustedAttributes: []string{},
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		LastLoginAt:       p.LastLoginAt,
	}
	for name, a := range p.Attributes {
		out.Attributes[name] = a.Value
		if a.Trusted {
			out.TrustedAttributes = append(out.TrustedAttributes, name)
		}
	}
	sort.Strings(out.TrustedAttributes)
	return out
}

func EndUsersFrom(ps []repository.Principal) []EndUser {
	out := make([]EndUser, 0, len(ps))
	for i := range ps {
		out = append(out, EndUserFrom(&ps[i]))
	}
	return out
}

// Login es un token emitido, sin su valor.
type Login struct {
	EndUserID string    `json:"end_user_id"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	Delivered bool      `json:"delivered"`
}

// LoginsFrom arma la vista de tokens. used = inactivo (consumido).
func LoginsFrom(ts []repository.AuthToken) []Login {
	out := make([]Login, 0, len(ts))
	for _, t := range ts {
		out = append(out, Login{
			EndUserID: t.PrincipalID,
			Channel:   string(t.Kind),
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
			Used:      !t.Active,
			Delivered: t.Delivered,
		})
	}
	return out
}

// Session es la respuesta de un verify exitoso.
type Session struct {
	JWT string `json:"JWT"`
}

// SendEmailRequest es el body de /widget/email/send.
type SendEmailRequest struct {
	Email *string `json:"email"`
}

// SendSMSRequest es el body de /widget/sms/send.
type SendSMSRequest struct {
	PhoneNumber *string `json:"phone_number"`
}

// VerifyRequest es el body de los verify por token.
type VerifyRequest struct {
	TokenString *string `json:"token_string"`
}

// GoogleVerifyRequest es el body de /widget/google/verify.
type GoogleVerifyRequest struct {
	Token *string `json:"token"`
}

// ValueRequest es el body de escritura de atributos y propiedades.
type ValueRequest struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}
