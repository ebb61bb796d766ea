package errors

import (
	"fmt"
	"net/http"
)

// AppError es la forma estándar de un error de la API.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"error_message"`
	Detail     string `json:"-"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetail devuelve una COPIA con detalle adicional (solo logs).
func (e *AppError) WithDetail(detail string) *AppError {
	n := *e
	n.Detail = detail
	return &n
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	n := *e
	n.Err = err
	return &n
}

// ─── 400 ───

var (
	ErrBadGUID           = New(http.StatusBadRequest, "bad-guid", "The token is not a valid GUID.")
	ErrMissingToken      = New(http.StatusBadRequest, "missing-token", "A token_string is required.")
	ErrMalformedToken    = New(http.StatusBadRequest, "bad-token", "The token is malformed.")
	ErrPhoneRequired     = New(http.StatusBadRequest, "phone-number-required", "A phone_number is required.")
	ErrEmailRequired     = New(http.StatusBadRequest, "email-required", "An email is required.")
	ErrInvalidEmail      = New(http.StatusBadRequest, "invalid-email", "The email address is not valid.")
	ErrInvalidPhone      = New(http.StatusBadRequest, "invalid-phone-number", "The phone number is not valid.")
	ErrMissingIdentifier = New(http.StatusBadRequest, "missing-identifier", "An email or phone_number is required.")
	ErrClientIDRequired  = New(http.StatusBadRequest, "client-id-required", "The X-Weasl-Client-Id header is required.")
	ErrAttrValueMissing  = New(http.StatusBadRequest, "attributes-value-missing", "A value is required.")
	ErrBadPropertyType   = New(http.StatusBadRequest, "bad-property-type", "The property type is not valid.")
	ErrBadPropertyName   = New(http.StatusBadRequest, "bad-property-name", "The property name is not valid.")
	ErrInvalidJSON       = New(http.StatusBadRequest, "invalid-json", "The request body is not valid JSON.")
	ErrInvalidInput      = New(http.StatusBadRequest, "invalid-input", "The request is not valid.")
)

// ─── 401 / 403 ───

var (
	ErrBadToken            = New(http.StatusUnauthorized, "bad-token", "The token is invalid or expired.")
	ErrLoginRequired       = New(http.StatusUnauthorized, "login-required", "A valid session is required.")
	ErrInvalidClientSecret = New(http.StatusUnauthorized, "invalid-client-secret", "The client secret is not valid.")
	ErrClientSecretReq     = New(http.StatusUnauthorized, "client-secret-required", "The X-Weasl-Client-Secret header is required.")
	ErrEmailNotVerified    = New(http.StatusUnauthorized, "email-not-verified", "The identity provider has not verified this email.")
	ErrInvalidAdminKey     = New(http.StatusUnauthorized, "invalid-admin-key", "The admin key is not valid.")
	ErrNotAdmin            = New(http.StatusForbidden, "not-admin", "Only platform administrators can do this.")
	ErrReservedAttribute   = New(http.StatusForbidden, "reserved-attribute", "This attribute can only be set with the client secret.")
)

// ─── 404 / 409 / 429 ───

var (
	ErrInvalidClientID  = New(http.StatusNotFound, "invalid-client-id", "No org matches this client id.")
	ErrEndUserNotFound  = New(http.StatusNotFound, "end-user-not-found", "The end user does not exist.")
	ErrNotFound         = New(http.StatusNotFound, "not-found", "The resource does not exist.")
	ErrDuplicateEmail   = New(http.StatusConflict, "duplicate-email", "The email is already in use.")
	ErrDuplicatePhone   = New(http.StatusConflict, "duplicate-phone", "The phone number is already in use.")
	ErrRateLimited      = New(http.StatusTooManyRequests, "rate-limited", "Too many requests, try again later.")
	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "method-not-allowed", "Method not allowed.")
)

// ─── 5xx ───

var (
	ErrInternalServerError = New(http.StatusInternalServerError, "internal-error", "Something went wrong.")
	ErrAuthProviderFailed  = New(http.StatusBadGateway, "auth-provider-failed", "The identity provider could not be reached.")
	ErrDeliveryFailed      = New(http.StatusBadGateway, "delivery-failed", "The token could not be delivered.")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "service-unavailable", "The service is not available.")
)
