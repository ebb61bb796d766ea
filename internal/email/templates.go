package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttpl "text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// Templates contiene el email de login ya parseado.
type Templates struct {
	html *template.Template
	text *texttpl.Template
}

// MagicLinkVars son las variables del email de login.
type MagicLinkVars struct {
	CompanyName string
	Link        string
	TTL         string
}

// LoadTemplates parsea los templates embebidos.
func LoadTemplates() (*Templates, error) {
	h, err := template.ParseFS(templatesFS, "templates/magiclink.html")
	if err != nil {
		return nil, fmt.Errorf("email: parse html template: %w", err)
	}
	t, err := texttpl.ParseFS(templatesFS, "templates/magiclink.txt")
	if err != nil {
		return nil, fmt.Errorf("email: parse text template: %w", err)
	}
	return &Templates{html: h, text: t}, nil
}

// RenderMagicLink retorna los cuerpos HTML y texto.
func (t *Templates) RenderMagicLink(vars MagicLinkVars) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := t.html.Execute(&hb, vars); err != nil {
		return "", "", fmt.Errorf("email: render html: %w", err)
	}
	if err := t.text.Execute(&tb, vars); err != nil {
		return "", "", fmt.Errorf("email: render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}

// Subject arma el asunto del email de login.
func Subject(companyName string) string {
	if companyName == "" {
		return "Log in to your account"
	}
	return "Log in to your " + companyName + " account"
}
