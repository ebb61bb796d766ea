package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe (o no matchea el filtro).
	ErrNotFound = errors.New("not found")

	// ErrConflict indica una violación de unicidad en el storage.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// ConflictError detalla qué constraint se violó, para que la capa superior pueda
// distinguir duplicate-email de duplicate-phone.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return "conflict on " + e.Field }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ConflictField retorna el campo en conflicto, o "" si no se conoce.
func ConflictField(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}
