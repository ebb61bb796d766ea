// Package tenant resuelve y administra tenants (orgs) y sus propiedades.
//
// Las lecturas por client_id se cachean en proceso con un TTL corto; misses
// concurrentes para la misma clave se colapsan en una sola consulta al store.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/security/token"
)

// Propiedades conocidas.
const (
	PropCompanyName      = "company_name"
	PropTextLoginMessage = "text_login_message"
	PropEmailMagicLink   = "email_magiclink"
)

const (
	clientIDBytes     = 10 // 20 hex
	clientSecretBytes = 16 // 32 hex
)

// ErrNotFound se retorna cuando el tenant o la propiedad no existen.
var ErrNotFound = repository.ErrNotFound

// defaults de propiedades conocidas, por namespace.
var defaults = map[repository.PropertyNamespace]map[string]types.TypedValue{
	repository.NamespaceNone: {
		PropTextLoginMessage: types.String("Use this code to login"),
	},
}

// Registry es el TenantRegistry.
type Registry struct {
	repo  repository.TenantRepository
	node  *snowflake.Node
	cache *gocache.Cache
	sf    singleflight.Group
	now   func() time.Time
}

// Options configura el Registry.
type Options struct {
	// NodeID del generador snowflake (0-1023).
	NodeID int64
	// CacheTTL de tenants y propiedades resueltos. 0 usa 30s.
	CacheTTL time.Duration
	Now      func() time.Time
}

// New crea un Registry.
func New(repo repository.TenantRepository, opts Options) (*Registry, error) {
	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("tenant: snowflake node: %w", err)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		repo:  repo,
		node:  node,
		cache: gocache.New(ttl, 2*ttl),
		now:   now,
	}, nil
}

func tenantKey(clientID string) string { return "cid:" + clientID }
func propsKey(tenantID int64) string   { return "props:" + strconv.FormatInt(tenantID, 10) }

// Resolve busca el tenant por client_id. Retorna ErrNotFound si no existe.
func (r *Registry) Resolve(ctx context.Context, clientID string) (*repository.Tenant, error) {
	if clientID == "" {
		return nil, ErrNotFound
	}
	key := tenantKey(clientID)
	if v, ok := r.cache.Get(key); ok {
		t := *v.(*repository.Tenant)
		return &t, nil
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		t, err := r.repo.GetByClientID(ctx, clientID)
		if err != nil {
			return nil, err
		}
		r.cache.SetDefault(key, t)
		return t, nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: resolve: %w", err)
	}
	t := *v.(*repository.Tenant)
	return &t, nil
}

// ResolveBySecret busca el tenant por client_secret. No se cachea.
func (r *Registry) ResolveBySecret(ctx context.Context, clientSecret string) (*repository.Tenant, error) {
	if clientSecret == "" {
		return nil, ErrNotFound
	}
	t, err := r.repo.GetByClientSecret(ctx, clientSecret)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: resolve by secret: %w", err)
	}
	return t, nil
}

// Get busca el tenant por id.
func (r *Registry) Get(ctx context.Context, id int64) (*repository.Tenant, error) {
	t, err := r.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant: get: %w", err)
	}
	return t, nil
}

// CreateTenant sortea credenciales, verifica que no existan e inserta. Ante
// colisión (probe o constraint) vuelve a sortear.
func (r *Registry) CreateTenant(ctx context.Context) (*repository.Tenant, error) {
	log := logger.From(ctx).With(logger.Layer("tenant"), logger.Op("CreateTenant"))

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clientID, err := token.RandomHex(clientIDBytes)
		if err != nil {
			return nil, fmt.Errorf("tenant: draw client id: %w", err)
		}
		secret, err := token.RandomHex(clientSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("tenant: draw client secret: %w", err)
		}

		taken, err := r.repo.CredentialsTaken(ctx, clientID, secret)
		if err != nil {
			return nil, fmt.Errorf("tenant: probe credentials: %w", err)
		}
		if taken {
			log.Debug("tenant credential collision, redrawing", logger.Attempt(attempt))
			continue
		}

		t := &repository.Tenant{
			ID:           r.node.Generate().Int64(),
			ClientID:     clientID,
			ClientSecret: secret,
			CreatedAt:    r.now().UTC(),
		}
		if err := r.repo.Create(ctx, t); err != nil {
			if repository.IsConflict(err) {
				log.Debug("tenant insert conflict, redrawing", logger.Attempt(attempt))
				continue
			}
			return nil, fmt.Errorf("tenant: create: %w", err)
		}
		log.Info("tenant created", logger.TenantID(t.ID), logger.ClientID(t.ClientID))
		return t, nil
	}
}

// Properties es el mapa namespace → nombre → valor de un tenant.
type Properties map[repository.PropertyNamespace]map[string]types.TypedValue

// Lookup retorna el valor seteado o el default conocido.
func (p Properties) Lookup(ns repository.PropertyNamespace, name string) (types.TypedValue, bool) {
	if v, ok := p[ns][name]; ok {
		return v, true
	}
	v, ok := defaults[ns][name]
	return v, ok
}

// Properties retorna todas las propiedades seteadas del tenant (sin defaults).
// El mapa es compartido con el cache: no modificar.
func (r *Registry) Properties(ctx context.Context, tenantID int64) (Properties, error) {
	key := propsKey(tenantID)
	if v, ok := r.cache.Get(key); ok {
		return v.(Properties), nil
	}
	v, err, _ := r.sf.Do(key, func() (any, error) {
		list, err := r.repo.ListProperties(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		out := Properties{}
		for _, p := range list {
			if out[p.Namespace] == nil {
				out[p.Namespace] = map[string]types.TypedValue{}
			}
			out[p.Namespace][p.Name] = p.Value
		}
		r.cache.SetDefault(key, out)
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tenant: properties: %w", err)
	}
	return v.(Properties), nil
}

// GetProperty retorna el valor seteado, el default de una propiedad conocida o
// ErrNotFound.
func (r *Registry) GetProperty(ctx context.Context, tenantID int64, ns repository.PropertyNamespace, name string) (types.TypedValue, error) {
	props, err := r.Properties(ctx, tenantID)
	if err != nil {
		return types.TypedValue{}, err
	}
	if v, ok := props.Lookup(ns, name); ok {
		return v, nil
	}
	return types.TypedValue{}, ErrNotFound
}

// PropertyString es GetProperty para valores mostrados como texto. Retorna ""
// si la propiedad no existe.
func (r *Registry) PropertyString(ctx context.Context, tenantID int64, ns repository.PropertyNamespace, name string) string {
	v, err := r.GetProperty(ctx, tenantID, ns, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.From(ctx).Warn("tenant property lookup failed",
				logger.TenantID(tenantID), logger.Property(name), logger.Err(err))
		}
		return ""
	}
	return v.Raw
}

// SetProperty crea o reemplaza la propiedad e invalida el cache del tenant.
func (r *Registry) SetProperty(ctx context.Context, tenantID int64, ns repository.PropertyNamespace, name string, value types.TypedValue) error {
	if name == "" {
		return fmt.Errorf("tenant: %w: empty property name", repository.ErrInvalidInput)
	}
	err := r.repo.UpsertProperty(ctx, repository.TenantProperty{
		TenantID:  tenantID,
		Namespace: ns,
		Name:      name,
		Value:     value,
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("tenant: set property: %w", err)
	}
	r.cache.Delete(propsKey(tenantID))
	logger.From(ctx).Debug("tenant property set",
		logger.TenantID(tenantID), logger.Namespace(string(ns)), logger.Property(name))
	return nil
}
