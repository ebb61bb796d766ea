// Package dal importa todos los adapters para auto-registro.
//
//	import _ "github.com/dropDatabas3/weasl/internal/store/adapters/dal"
package dal

import (
	_ "github.com/dropDatabas3/weasl/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/weasl/internal/store/adapters/pg"
)
