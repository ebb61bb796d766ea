package helpers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

// ListPerPage es el tamaño de página por defecto de los listados de la API.
const ListPerPage = 10

// PageFromQuery lee ?page y ?per_page. Valores no numéricos usan el default.
func PageFromQuery(r *http.Request) repository.Page {
	q := r.URL.Query()
	p := repository.Page{Number: 1, PerPage: ListPerPage}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Number = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil {
		p.PerPage = n
	}
	return p.Normalize()
}

// Pagination es meta.pagination de un listado. Next y Prev se omiten en los
// extremos.
type Pagination struct {
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Total   int    `json:"total"`
	Pages   int    `json:"pages"`
	First   string `json:"first"`
	Last    string `json:"last"`
	Next    string `json:"next,omitempty"`
	Prev    string `json:"prev,omitempty"`
}

// Paginate arma la meta de paginación con links relativos a path.
func Paginate(path string, page repository.Page, total int) Pagination {
	page = page.Normalize()
	pages := (total + page.PerPage - 1) / page.PerPage
	if pages < 1 {
		pages = 1
	}
	link := func(n int) string {
		return fmt.Sprintf("%s?page=%d&per_page=%d", path, n, page.PerPage)
	}
	out := Pagination{
		Page:    page.Number,
		PerPage: page.PerPage,
		Total:   total,
		Pages:   pages,
		First:   link(1),
		Last:    link(pages),
	}
	if page.Number < pages {
		out.Next = link(page.Number + 1)
	}
	if page.Number > 1 {
		out.Prev = link(page.Number - 1)
	}
	return out
}

// List responde {"data": items, "meta": {"pagination": ...}}.
func List(w http.ResponseWriter, r *http.Request, items any, page repository.Page, total int) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{"pagination": Paginate(r.URL.Path, page, total)},
	})
}
