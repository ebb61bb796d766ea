package validation

import (
	"net/mail"
	"regexp"
	"strings"
)

// Reglas de identificadores de login:
//   - Email: dirección simple (sin display name), local@dominio con al menos un
//     punto en el dominio. Se compara en minúsculas.
//   - Teléfono: se guarda tal cual llega (trim). Se acepta un '+' inicial y
//     dígitos con separadores comunes, 6..20 dígitos.
var (
	domainRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9 ()\-.]{6,32}$`)
	// Nombres de atributos y propiedades: alfanuméricos, '_', '-', '.', 1..64.
	nameRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)
)

// NormalizeEmail recorta espacios y pasa a minúsculas.
func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// ValidEmail reporta si v (ya normalizado) es una dirección aceptable.
func ValidEmail(v string) bool {
	if v == "" || len(v) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(v, '@')
	if at <= 0 || at > 64 {
		return false
	}
	return domainRe.MatchString(v[at+1:])
}

// NormalizePhone recorta espacios. El valor se compara tal cual.
func NormalizePhone(v string) string {
	return strings.TrimSpace(v)
}

// ValidPhone reporta si v (ya normalizado) parece un número telefónico.
func ValidPhone(v string) bool {
	if !phoneRe.MatchString(v) {
		return false
	}
	digits := 0
	for i := 0; i < len(v); i++ {
		if v[i] >= '0' && v[i] <= '9' {
			digits++
		}
	}
	return digits >= 6 && digits <= 20
}

// ValidName reporta si v es un nombre de atributo o propiedad válido.
func ValidName(v string) bool {
	return nameRe.MatchString(v)
}
