// Package helpers agrupa utilidades de request/response compartidas por los
// controllers.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
)

// maxBody limita el body de los requests JSON.
const maxBody = 1 << 20

// ReadJSON decodifica el body en v. Un body vacío deja v intacto; JSON inválido
// retorna invalid-json.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return httperrors.ErrInvalidJSON.WithCause(err)
	}
	return nil
}

// WriteJSON escribe v como JSON con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data envuelve la respuesta en {"data": v}.
func Data(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, map[string]any{"data": v})
}

// Message responde {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}
