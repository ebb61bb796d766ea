package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/types"
)

// IdentifierKind es el tipo de identificador de un principal.
type IdentifierKind string

const (
	IdentifierEmail IdentifierKind = "email"
	IdentifierPhone IdentifierKind = "phone"
)

// Identifier es un (kind, value) ya normalizado.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// Principal es una identidad autenticable, siempre dentro de un único tenant.
type Principal struct {
	ID          string
	TenantID    int64
	Email       *string
	Phone       *string
	Attributes  map[string]Attribute
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
	DeletedAt   *time.Time
}

// Attribute es un valor tipado asociado a un principal. Trusted indica que lo
// escribió un caller autenticado con el client secret del tenant.
type Attribute struct {
	Name      string
	Value     types.TypedValue
	Trusted   bool
	UpdatedAt time.Time
}

// PrincipalRepository define el acceso a principals. Todas las lecturas
// excluyen principals soft-deleted.
type PrincipalRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Principal, error)

	// FindByIdentifier busca por email o teléfono dentro del tenant.
	// Retorna ErrNotFound si no existe.
	FindByIdentifier(ctx context.Context, tenantID int64, id Identifier) (*Principal, error)

	// Create inserta el principal. Retorna un *ConflictError (Field "email" o
	// "phone") si viola la unicidad por tenant.
	Create(ctx context.Context, p *Principal) error

	// TouchLogin setea last_login_at.
	TouchLogin(ctx context.Context, id string, at time.Time) error

	// UpsertAttribute crea o reemplaza el atributo (principal_id, name).
	UpsertAttribute(ctx context.Context, principalID string, attr Attribute) error

	// List retorna una página de principals del tenant ordenada por último login
	// (más reciente primero) y el total.
	List(ctx context.Context, tenantID int64, page Page) ([]Principal, int, error)

	// SoftDelete marca deleted_at. Retorna ErrNotFound si no existe.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}
