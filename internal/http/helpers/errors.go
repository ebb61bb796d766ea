package helpers

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/http/services/auth"
	"github.com/dropDatabas3/weasl/internal/http/services/orgs"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/principal"
)

// AppError traduce un error de dominio a su AppError. Errores sin mapeo son
// internal-error.
func AppError(err error) *httperrors.AppError {
	var appErr *httperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var dup *principal.DuplicateError
	switch {
	case errors.As(err, &dup):
		if dup.Field == "phone" {
			return httperrors.ErrDuplicatePhone.WithCause(err)
		}
		return httperrors.ErrDuplicateEmail.WithCause(err)
	case errors.Is(err, auth.ErrMalformed):
		return httperrors.ErrMalformedToken.WithCause(err)
	case errors.Is(err, auth.ErrRejected):
		return httperrors.ErrBadToken.WithCause(err)
	case errors.Is(err, auth.ErrTokenRequired):
		return httperrors.ErrMissingToken.WithCause(err)
	case errors.Is(err, auth.ErrEmailRequired):
		return httperrors.ErrEmailRequired.WithCause(err)
	case errors.Is(err, auth.ErrPhoneRequired):
		return httperrors.ErrPhoneRequired.WithCause(err)
	case errors.Is(err, principal.ErrInvalidEmail):
		return httperrors.ErrInvalidEmail.WithCause(err)
	case errors.Is(err, principal.ErrInvalidPhone):
		return httperrors.ErrInvalidPhone.WithCause(err)
	case errors.Is(err, principal.ErrMissingIdentifier):
		return httperrors.ErrMissingIdentifier.WithCause(err)
	case errors.Is(err, principal.ErrReservedAttribute):
		return httperrors.ErrReservedAttribute.WithCause(err)
	case errors.Is(err, principal.ErrInvalidName):
		return httperrors.ErrBadPropertyName.WithCause(err)
	case errors.Is(err, types.ErrInvalidPropertyType):
		return httperrors.ErrBadPropertyType.WithCause(err)
	case errors.Is(err, auth.ErrEmailNotVerified):
		return httperrors.ErrEmailNotVerified.WithCause(err)
	case errors.Is(err, auth.ErrUpstream):
		return httperrors.ErrAuthProviderFailed.WithCause(err)
	case errors.Is(err, auth.ErrDelivery):
		return httperrors.ErrDeliveryFailed.WithCause(err)
	case errors.Is(err, orgs.ErrEndUserMissing):
		return httperrors.ErrEndUserNotFound.WithCause(err)
	case errors.Is(err, orgs.ErrValueMissing):
		return httperrors.ErrAttrValueMissing.WithCause(err)
	case errors.Is(err, orgs.ErrBadNamespace):
		return httperrors.ErrBadPropertyName.WithCause(err)
	case errors.Is(err, repository.ErrInvalidInput):
		return httperrors.ErrInvalidInput.WithCause(err)
	case errors.Is(err, repository.ErrNotFound):
		return httperrors.ErrNotFound.WithCause(err)
	}
	return httperrors.ErrInternalServerError.WithCause(err)
}

// Fail loguea y escribe el error. Los 5xx se loguean como error, el resto como debug.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := AppError(err)
	log := logger.From(r.Context())
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error("request failed", logger.String("error_code", appErr.Code), logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("error_code", appErr.Code), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}
