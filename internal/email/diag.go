package email

import (
	"errors"
	"net"
	"strings"
)

// Diagnose clasifica un error de envío SMTP en un código corto, usado como
// label de métricas y en logs: timeout | dial | tls | auth | rate_limited |
// invalid_recipient | rejected | network | unknown.
func Diagnose(err error) string {
	if err == nil {
		return "ok"
	}
	s := strings.ToLower(err.Error())

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	switch {
	case strings.Contains(s, "timeout"):
		return "timeout"
	case strings.Contains(s, "connection refused"), strings.Contains(s, "no such host"), strings.Contains(s, "dial tcp"):
		return "dial"
	case strings.Contains(s, "x509:"), strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")):
		return "tls"
	case strings.Contains(s, "535"), strings.Contains(s, "5.7.8"), strings.Contains(s, "authentication failed"):
		return "auth"
	case strings.Contains(s, "4.7.0"), strings.Contains(s, "421"), strings.Contains(s, "451"), strings.Contains(s, "try again later"):
		return "rate_limited"
	case strings.Contains(s, "5.1.1"), strings.Contains(s, "user unknown"), strings.Contains(s, "mailbox not found"):
		return "invalid_recipient"
	case strings.Contains(s, "5.7.1"), strings.Contains(s, "message rejected"):
		return "rejected"
	}
	if ne != nil {
		return "network"
	}
	return "unknown"
}
