// Package store provee el registry de adapters de almacenamiento.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

// Adapter crea conexiones a un backend de almacenamiento.
type Adapter interface {
	// Name retorna el nombre del driver ("postgres", "memory").
	Name() string

	// Connect establece la conexión.
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es una conexión activa que expone los repositorios.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Tenants() repository.TenantRepository
	Principals() repository.PrincipalRepository
	AuthTokens() repository.AuthTokenRepository
}

// AdapterConfig configuración para conectar.
type AdapterConfig struct {
	Driver   string
	DSN      string
	MaxConns int32
	MinConns int32
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Se llama desde init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(adapters))
	for n := range adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open conecta usando el adapter indicado por cfg.Driver.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	a, ok := GetAdapter(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("store: unknown driver %q (registered: %v)", cfg.Driver, ListAdapters())
	}
	conn, err := a.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", cfg.Driver, err)
	}
	return conn, nil
}
