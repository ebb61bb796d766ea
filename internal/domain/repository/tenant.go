package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/types"
)

// Tenant (org) es un cliente de la plataforma que aísla una población de principals.
type Tenant struct {
	ID           int64
	ClientID     string // público, usado por el widget
	ClientSecret string // privado, llamadas server-to-server
	CreatedAt    time.Time
}

// PropertyNamespace agrupa propiedades de tenant.
type PropertyNamespace string

const (
	NamespaceNone     PropertyNamespace = "*"
	NamespaceGates    PropertyNamespace = "gates"
	NamespaceTheme    PropertyNamespace = "theme"
	NamespaceSettings PropertyNamespace = "settings"
)

// ParseNamespace valida un namespace recibido por la API.
func ParseNamespace(s string) (PropertyNamespace, bool) {
	switch PropertyNamespace(s) {
	case NamespaceNone, NamespaceGates, NamespaceTheme, NamespaceSettings:
		return PropertyNamespace(s), true
	case "":
		return NamespaceNone, true
	}
	return "", false
}

// TenantProperty es un valor de configuración por tenant.
type TenantProperty struct {
	TenantID  int64
	Namespace PropertyNamespace
	Name      string
	Value     types.TypedValue
	UpdatedAt time.Time
}

// TenantRepository define el acceso a tenants y sus propiedades.
type TenantRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*Tenant, error)

	// GetByClientID busca por identificador público. Retorna ErrNotFound si no existe.
	GetByClientID(ctx context.Context, clientID string) (*Tenant, error)

	// GetByClientSecret busca por identificador privado. Retorna ErrNotFound si no existe.
	GetByClientSecret(ctx context.Context, clientSecret string) (*Tenant, error)

	// CredentialsTaken indica si client_id o client_secret ya existen.
	CredentialsTaken(ctx context.Context, clientID, clientSecret string) (bool, error)

	// Create inserta el tenant. Retorna ErrConflict si viola unicidad.
	Create(ctx context.Context, t *Tenant) error

	// GetProperty retorna ErrNotFound si la propiedad no está seteada.
	GetProperty(ctx context.Context, tenantID int64, ns PropertyNamespace, name string) (*TenantProperty, error)

	// ListProperties retorna todas las propiedades del tenant.
	ListProperties(ctx context.Context, tenantID int64) ([]TenantProperty, error)

	// UpsertProperty crea o reemplaza la propiedad (tenant_id, namespace, name).
	UpsertProperty(ctx context.Context, p TenantProperty) error
}
