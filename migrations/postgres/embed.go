// Package migrations embebe las migraciones SQL de PostgreSQL.
package migrations

import "embed"

// FS contiene los archivos {version}_{name}_up.sql / _down.sql.
//
//go:embed *.sql
var FS embed.FS

// Dir es el directorio dentro de FS donde viven las migraciones.
const Dir = "."
