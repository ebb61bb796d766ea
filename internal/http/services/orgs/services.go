// Package orgs implementa la administración de tenants: el tenant de cada
// admin de la plataforma, sus propiedades, sus end users y los gates.
package orgs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/events"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/principal"
	"github.com/dropDatabas3/weasl/internal/tenant"
	"github.com/dropDatabas3/weasl/internal/tokens"
	"github.com/dropDatabas3/weasl/internal/validation"
)

// AttrOrgIDAsAdmin es el atributo trusted que vincula un admin con su tenant.
const AttrOrgIDAsAdmin = principal.AttrOrgIDAsAdmin

var (
	// ErrNoTenant indica que el admin todavía no tiene tenant (ver MyTenant).
	ErrNoTenant       = fmt.Errorf("admin has no org: %w", repository.ErrNotFound)
	ErrValueMissing   = errors.New("value is required")
	ErrBadNamespace   = errors.New("unknown property namespace")
	ErrEndUserMissing = fmt.Errorf("end user: %w", repository.ErrNotFound)
)

// Deps contiene las dependencias del Service.
type Deps struct {
	Tenants    *tenant.Registry
	Principals *principal.Store
	EmailToken *tokens.Engine
	SMSToken   *tokens.Engine
	Events     events.Publisher
	Now        func() time.Time
}

// Service administra tenants en nombre de sus admins.
type Service struct {
	deps Deps
	sf   singleflight.Group
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = events.LogPublisher{}
	}
	return &Service{deps: d}
}

func adminTenantID(p *repository.Principal) (int64, bool) {
	v, ok := principal.TrustedAttribute(p, AttrOrgIDAsAdmin)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v.Raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// AdministeredTenant retorna el tenant del admin o ErrNoTenant.
func (s *Service) AdministeredTenant(ctx context.Context, admin *repository.Principal) (*repository.Tenant, error) {
	id, ok := adminTenantID(admin)
	if !ok {
		return nil, ErrNoTenant
	}
	t, err := s.deps.Tenants.Get(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNoTenant
		}
		return nil, err
	}
	return t, nil
}

// MyTenant retorna el tenant del admin y lo crea en la primera llamada. Las
// llamadas concurrentes del mismo admin comparten una sola creación.
func (s *Service) MyTenant(ctx context.Context, admin *repository.Principal) (*repository.Tenant, error) {
	if t, err := s.AdministeredTenant(ctx, admin); !errors.Is(err, ErrNoTenant) {
		return t, err
	}

	v, err, _ := s.sf.Do(admin.ID, func() (any, error) {
		// Releer: otra llamada pudo haber creado el tenant.
		fresh, err := s.deps.Principals.Get(ctx, admin.ID)
		if err != nil {
			return nil, err
		}
		if t, err := s.AdministeredTenant(ctx, fresh); !errors.Is(err, ErrNoTenant) {
			return t, err
		}

		t, err := s.deps.Tenants.CreateTenant(ctx)
		if err != nil {
			return nil, err
		}
		link := types.String(strconv.FormatInt(t.ID, 10))
		if err := s.deps.Principals.SetAttribute(ctx, admin.ID, AttrOrgIDAsAdmin, link, true); err != nil {
			return nil, fmt.Errorf("orgs: link admin to tenant: %w", err)
		}
		events.Emit(ctx, s.deps.Events, events.Event{
			Type:        events.TenantCreated,
			TenantID:    t.ID,
			PrincipalID: admin.ID,
			At:          s.deps.Now().UTC(),
		})
		logger.From(ctx).Info("tenant created for admin",
			logger.Component("orgs"), logger.TenantID(t.ID), logger.PrincipalID(admin.ID))
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*repository.Tenant), nil
}

// CreateTenant crea un tenant sin admin (superficie de operador).
func (s *Service) CreateTenant(ctx context.Context) (*repository.Tenant, error) {
	t, err := s.deps.Tenants.CreateTenant(ctx)
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.deps.Events, events.Event{
		Type:     events.TenantCreated,
		TenantID: t.ID,
		At:       s.deps.Now().UTC(),
	})
	return t, nil
}

// TenantByClientID resuelve un tenant por su client id.
func (s *Service) TenantByClientID(ctx context.Context, clientID string) (*repository.Tenant, error) {
	return s.deps.Tenants.Resolve(ctx, clientID)
}

// Properties retorna las propiedades seteadas del tenant.
func (s *Service) Properties(ctx context.Context, tenantID int64) (tenant.Properties, error) {
	return s.deps.Tenants.Properties(ctx, tenantID)
}

// EncodeValue valida tipo y valor recibidos por la API. Tipo vacío es STRING.
func EncodeValue(typ string, value any) (types.TypedValue, error) {
	if value == nil {
		return types.TypedValue{}, ErrValueMissing
	}
	vt, err := types.ParseValueType(typ)
	if err != nil {
		return types.TypedValue{}, err
	}
	return types.Encode(vt, value)
}

// SetProperty escribe una propiedad del tenant en el namespace dado.
func (s *Service) SetProperty(ctx context.Context, tenantID int64, ns repository.PropertyNamespace, name, typ string, value any) error {
	if !validation.ValidName(name) {
		return principal.ErrInvalidName
	}
	if ns == repository.NamespaceGates {
		return s.SetGate(ctx, tenantID, name, value)
	}
	v, err := EncodeValue(typ, value)
	if err != nil {
		return err
	}
	return s.deps.Tenants.SetProperty(ctx, tenantID, ns, name, v)
}

// SetGate escribe un gate. El valor siempre se guarda como BOOLEAN: true solo
// para true o "true"/"True".
func (s *Service) SetGate(ctx context.Context, tenantID int64, name string, value any) error {
	if value == nil {
		return ErrValueMissing
	}
	if !validation.ValidName(name) {
		return principal.ErrInvalidName
	}
	on := false
	switch v := value.(type) {
	case bool:
		on = v
	case string:
		on = v == "true" || v == "True"
	}
	if _, err := s.deps.Tenants.Get(ctx, tenantID); err != nil {
		return err
	}
	return s.deps.Tenants.SetProperty(ctx, tenantID, repository.NamespaceGates, name, types.Bool(on))
}

// Tenant retorna un tenant por id.
func (s *Service) Tenant(ctx context.Context, id int64) (*repository.Tenant, error) {
	return s.deps.Tenants.Get(ctx, id)
}
