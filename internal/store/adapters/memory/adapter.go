// Package memory implementa un adapter en memoria para desarrollo y tests.
// Emula las constraints de unicidad y el consume atómico del adapter pg.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	return New(), nil
}

// Conn es el estado compartido por los repositorios en memoria. Un único mutex
// serializa todas las operaciones, lo que hace triviales los compare-and-swap.
type Conn struct {
	mu sync.Mutex

	tenants    map[int64]*repository.Tenant
	properties map[propertyKey]repository.TenantProperty
	principals map[string]*repository.Principal
	tokens     map[repository.TokenKind][]*repository.AuthToken
}

type propertyKey struct {
	tenantID int64
	ns       repository.PropertyNamespace
	name     string
}

// New crea una conexión vacía.
func New() *Conn {
	return &Conn{
		tenants:    map[int64]*repository.Tenant{},
		properties: map[propertyKey]repository.TenantProperty{},
		principals: map[string]*repository.Principal{},
		tokens:     map[repository.TokenKind][]*repository.AuthToken{},
	}
}

func (c *Conn) Name() string                   { return "memory" }
func (c *Conn) Ping(ctx context.Context) error { return ctx.Err() }
func (c *Conn) Close() error                   { return nil }

func (c *Conn) Tenants() repository.TenantRepository       { return &tenantRepo{c} }
func (c *Conn) Principals() repository.PrincipalRepository { return &principalRepo{c} }
func (c *Conn) AuthTokens() repository.AuthTokenRepository { return &tokenRepo{c} }

func paginate[T any](items []T, page repository.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
