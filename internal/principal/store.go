// Package principal administra las identidades autenticables de cada tenant.
package principal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/validation"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrMissingIdentifier = errors.New("email or phone is required")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidName       = errors.New("invalid attribute name")
	// ErrReservedAttribute: el atributo solo admite escrituras trusted.
	ErrReservedAttribute = errors.New("attribute is reserved")
)

// Atributos de la plataforma. Solo se escriben con el client secret.
const (
	AttrIsAdmin      = "is_admin"
	AttrOrgIDAsAdmin = "org_id_as_admin"
)

// Reserved reporta si name no admite escrituras de baja confianza.
func Reserved(name string) bool {
	return name == AttrIsAdmin || name == AttrOrgIDAsAdmin
}

// DuplicateError indica que el identificador ya pertenece a otro principal del
// tenant. Field es "email" o "phone".
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return "duplicate " + e.Field }

// Is permite errors.Is(err, ErrDuplicateIdentifier).
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateIdentifier }

// ErrDuplicateIdentifier es el sentinel de DuplicateError.
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// Email construye un Identifier de email normalizado. Retorna ErrInvalidEmail si
// no es válido.
func Email(v string) (repository.Identifier, error) {
	v = validation.NormalizeEmail(v)
	if !validation.ValidEmail(v) {
		return repository.Identifier{}, ErrInvalidEmail
	}
	return repository.Identifier{Kind: repository.IdentifierEmail, Value: v}, nil
}

// Phone construye un Identifier de teléfono. Retorna ErrInvalidPhone si no es válido.
func Phone(v string) (repository.Identifier, error) {
	v = validation.NormalizePhone(v)
	if !validation.ValidPhone(v) {
		return repository.Identifier{}, ErrInvalidPhone
	}
	return repository.Identifier{Kind: repository.IdentifierPhone, Value: v}, nil
}

// Store es el PrincipalStore.
type Store struct {
	repo repository.PrincipalRepository
	now  func() time.Time
}

// New crea un Store. now nil usa time.Now.
func New(repo repository.PrincipalRepository, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{repo: repo, now: now}
}

func mapErr(op string, err error) error {
	switch {
	case repository.IsNotFound(err):
		return ErrNotFound
	case repository.IsConflict(err):
		return &DuplicateError{Field: repository.ConflictField(err)}
	}
	return fmt.Errorf("principal: %s: %w", op, err)
}

// FindByIdentifier busca dentro del tenant. Retorna ErrNotFound si no existe.
func (s *Store) FindByIdentifier(ctx context.Context, tenantID int64, id repository.Identifier) (*repository.Principal, error) {
	p, err := s.repo.FindByIdentifier(ctx, tenantID, id)
	if err != nil {
		return nil, mapErr("find", err)
	}
	return p, nil
}

// GetOrCreate retorna el principal del tenant con ese identificador, creándolo
// si no existe. Si un create concurrente gana la constraint, se relee una vez.
func (s *Store) GetOrCreate(ctx context.Context, tenantID int64, id repository.Identifier) (*repository.Principal, error) {
	p, err := s.FindByIdentifier(ctx, tenantID, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var email, phone string
	switch id.Kind {
	case repository.IdentifierEmail:
		email = id.Value
	case repository.IdentifierPhone:
		phone = id.Value
	}

	p, err = s.Create(ctx, tenantID, email, phone)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrDuplicateIdentifier) {
		return nil, err
	}

	logger.From(ctx).Debug("principal create lost race, re-reading",
		logger.Layer("principal"), logger.Op("GetOrCreate"), logger.TenantID(tenantID))
	p, rerr := s.FindByIdentifier(ctx, tenantID, id)
	if rerr != nil {
		return nil, err
	}
	return p, nil
}

// Create inserta un principal con al menos un identificador. Los valores deben
// venir normalizados (ver Email y Phone).
func (s *Store) Create(ctx context.Context, tenantID int64, email, phone string) (*repository.Principal, error) {
	if email == "" && phone == "" {
		return nil, ErrMissingIdentifier
	}
	now := s.now().UTC()
	p := &repository.Principal{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Attributes: map[string]repository.Attribute{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if email != "" {
		p.Email = &email
	}
	if phone != "" {
		p.Phone = &phone
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, mapErr("create", err)
	}
	logger.From(ctx).Info("principal created",
		logger.Layer("principal"), logger.TenantID(tenantID), logger.PrincipalID(p.ID))
	return p, nil
}

// Get retorna el principal (no borrado). ErrNotFound si no existe.
func (s *Store) Get(ctx context.Context, id string) (*repository.Principal, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr("get", err)
	}
	return p, nil
}

// RecordLogin setea last_login_at. Es idempotente; los callers lo tratan como
// best effort.
func (s *Store) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.repo.TouchLogin(ctx, id, at.UTC()); err != nil {
		return mapErr("record login", err)
	}
	return nil
}

// SetAttribute crea o reemplaza un atributo. trusted indica que lo escribe un
// caller autenticado con el client secret del tenant.
func (s *Store) SetAttribute(ctx context.Context, id, name string, value types.TypedValue, trusted bool) error {
	if !validation.ValidName(name) {
		return ErrInvalidName
	}
	if !trusted && Reserved(name) {
		return ErrReservedAttribute
	}
	err := s.repo.UpsertAttribute(ctx, id, repository.Attribute{
		Name:      name,
		Value:     value,
		Trusted:   trusted,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return mapErr("set attribute", err)
	}
	return nil
}

// TrustedAttribute retorna el atributo solo si existe y es trusted.
func TrustedAttribute(p *repository.Principal, name string) (types.TypedValue, bool) {
	a, ok := p.Attributes[name]
	if !ok || !a.Trusted {
		return types.TypedValue{}, false
	}
	return a.Value, true
}

// List retorna una página de principals del tenant ordenada por último login.
func (s *Store) List(ctx context.Context, tenantID int64, page repository.Page) ([]repository.Principal, int, error) {
	list, total, err := s.repo.List(ctx, tenantID, page.Normalize())
	if err != nil {
		return nil, 0, mapErr("list", err)
	}
	return list, total, nil
}

// SoftDelete marca el principal como borrado. Las lecturas dejan de verlo y sus
// identificadores quedan libres.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return mapErr("soft delete", err)
	}
	return nil
}
