package repository

// Page describe una página 1-based para listados.
type Page struct {
	Number  int
	PerPage int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Normalize aplica defaults y límites.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset retorna el offset SQL de la página.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.PerPage
}
