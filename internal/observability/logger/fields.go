package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field       { return zap.String("user_agent", v) }

// ─── Dominio ───

func TenantID(v int64) zap.Field      { return zap.Int64("tenant_id", v) }
func ClientID(v string) zap.Field     { return zap.String("client_id", v) }
func PrincipalID(v string) zap.Field  { return zap.String("principal_id", v) }
func Channel(v string) zap.Field      { return zap.String("channel", v) }
func Namespace(v string) zap.Field    { return zap.String("namespace", v) }
func Property(v string) zap.Field     { return zap.String("property", v) }
func Attempt(v int) zap.Field         { return zap.Int("attempt", v) }
func ExpiresAt(v time.Time) zap.Field { return zap.Time("expires_at", v) }

// Email loguea un email enmascarado (a***@dominio).
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// Phone loguea un teléfono enmascarado (últimos 4 dígitos).
func Phone(v string) zap.Field { return zap.String("phone", MaskPhone(v)) }

// Token loguea solo un prefijo del token; nunca el valor completo.
func Token(v string) zap.Field {
	if len(v) > 4 {
		v = v[:4] + "…"
	}
	return zap.String("token_prefix", v)
}

// ─── Estructura ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }

// ─── Genéricos ───

func Err(err error) zap.Field               { return zap.Error(err) }
func String(k, v string) zap.Field          { return zap.String(k, v) }
func Int(k string, v int) zap.Field         { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field       { return zap.Bool(k, v) }
func Any(k string, v interface{}) zap.Field { return zap.Any(k, v) }

// MaskEmail deja la primera letra del local-part y el dominio.
func MaskEmail(v string) string {
	at := strings.LastIndex(v, "@")
	if at <= 0 {
		return "***"
	}
	return v[:1] + "***" + v[at:]
}

// MaskPhone deja visibles los últimos 4 caracteres.
func MaskPhone(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return "***" + v[len(v)-4:]
}
