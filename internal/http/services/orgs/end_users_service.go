package orgs

import (
	"context"
	"errors"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/events"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/tokens"
)

// ListEndUsers pagina los principals del tenant.
func (s *Service) ListEndUsers(ctx context.Context, tenantID int64, page repository.Page) ([]repository.Principal, int, error) {
	return s.deps.Principals.List(ctx, tenantID, page)
}

// GetEndUser retorna un principal del tenant. Uno de otro tenant es ErrEndUserMissing.
func (s *Service) GetEndUser(ctx context.Context, tenantID int64, id string) (*repository.Principal, error) {
	p, err := s.deps.Principals.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEndUserMissing
		}
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, ErrEndUserMissing
	}
	return p, nil
}

// DeleteEndUser hace soft delete del principal.
func (s *Service) DeleteEndUser(ctx context.Context, tenantID int64, id string) error {
	if _, err := s.GetEndUser(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.deps.Principals.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEndUserMissing
		}
		return err
	}
	events.Emit(ctx, s.deps.Events, events.Event{
		Type:        events.PrincipalDelete,
		TenantID:    tenantID,
		PrincipalID: id,
		At:          s.deps.Now().UTC(),
	})
	logger.From(ctx).Info("end user deleted", logger.Component("orgs"), logger.TenantID(tenantID), logger.PrincipalID(id))
	return nil
}

// SetEndUserAttribute escribe un atributo del principal y retorna el principal
// actualizado.
func (s *Service) SetEndUserAttribute(ctx context.Context, tenantID int64, id, name, typ string, value any, trusted bool) (*repository.Principal, error) {
	if _, err := s.GetEndUser(ctx, tenantID, id); err != nil {
		return nil, err
	}
	v, err := EncodeValue(typ, value)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Principals.SetAttribute(ctx, id, name, v, trusted); err != nil {
		return nil, err
	}
	return s.deps.Principals.Get(ctx, id)
}

// ListLogins pagina los tokens emitidos por el tenant en un canal.
func (s *Service) ListLogins(ctx context.Context, tenantID int64, kind repository.TokenKind, page repository.Page) ([]repository.AuthToken, int, error) {
	var eng *tokens.Engine
	switch kind {
	case repository.TokenEmail:
		eng = s.deps.EmailToken
	case repository.TokenSMS:
		eng = s.deps.SMSToken
	default:
		return nil, 0, repository.ErrInvalidInput
	}
	return eng.List(ctx, tenantID, page)
}
