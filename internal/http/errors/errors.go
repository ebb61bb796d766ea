// Package errors define los errores de la API y su serialización
// {"error_code", "error_message"}.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type errorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// FromError convierte un error en AppError. Un error que no es (ni envuelve) un
// AppError se reporta como internal-error conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe la respuesta de error.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: appErr.Code, Message: appErr.Message})
}
