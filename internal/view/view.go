// Package view renders the pipeline dashboard pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/swr"
)

//go:embed templates/*.html
var templateFS embed.FS

// SkeletonRows is the number of placeholder rows shown while loading.
const SkeletonRows = 3

// ViewState is the mutually exclusive state the table renders in.
type ViewState int

const (
	StateLoading ViewState = iota
	StateError
	StateEmpty
	StatePopulated
)

func (s ViewState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	default:
		return "populated"
	}
}

// Resolve picks the table state for a hook snapshot. Loading wins over
// error, error over empty, empty over populated.
func Resolve(s swr.State) ViewState {
	switch {
	case s.IsLoading:
		return StateLoading
	case s.Err != nil:
		return StateError
	case len(s.Pipelines) == 0:
		return StateEmpty
	default:
		return StatePopulated
	}
}

// TableParams is everything the table template needs.
type TableParams struct {
	State            ViewState
	Heading          string
	ShowTenantColumn bool
	Columns          int
	SkeletonRows     []struct{}
	Pipelines        []domain.Pipeline
	Summary          domain.Summary
	// Scope is the tenantId the page was requested with, echoed back by
	// the retry and toggle forms.
	Scope     string
	UpdatedAt time.Time
	Err       error
}

// NewTable derives the table parameters from a hook snapshot.
func NewTable(s swr.State, showTenantColumn bool, scope string) TableParams {
	t := TableParams{
		State:            Resolve(s),
		Heading:          "My Pipelines",
		ShowTenantColumn: showTenantColumn,
		Columns:          3,
		Scope:            scope,
		UpdatedAt:        s.UpdatedAt,
		Err:              s.Err,
	}
	if showTenantColumn {
		t.Heading = "Tenant Pipelines"
		t.Columns = 4
	}

	switch t.State {
	case StateLoading:
		t.SkeletonRows = make([]struct{}, SkeletonRows)
	case StatePopulated:
		t.Pipelines = s.Pipelines
		t.Summary = domain.Summarize(s.Pipelines)
	}
	return t
}

// PageParams drives a full dashboard page.
type PageParams struct {
	Profile Profile
	Table   TableParams
	// RefreshSeconds is the meta-refresh interval used while loading.
	RefreshSeconds int
}

// Renderer executes the embedded templates.
type Renderer struct {
	t      *template.Template
	logger *slog.Logger
}

// NewRenderer parses the embedded templates.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t, err := template.New("view").
		Funcs(funcMap()).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{t: t, logger: logger}, nil
}

// Page writes a complete HTML document.
func (r *Renderer) Page(w io.Writer, params PageParams) error {
	if params.RefreshSeconds <= 0 {
		params.RefreshSeconds = 2
	}
	r.logTableError(params.Table)
	return r.t.ExecuteTemplate(w, "page", params)
}

// Table writes the table fragment only.
func (r *Renderer) Table(w io.Writer, params TableParams) error {
	r.logTableError(params)
	return r.t.ExecuteTemplate(w, "table", params)
}

// logTableError records the fetch error behind an error view. The page
// itself only shows a generic prompt.
func (r *Renderer) logTableError(t TableParams) {
	if t.State != StateError || t.Err == nil {
		return
	}
	r.logger.Error("pipeline fetch error",
		slog.String("error", t.Err.Error()),
		slog.String("scope", t.Scope),
	)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"pathEscape": url.PathEscape,
		"ago":        humanize.Time,
		"highlight":  highlight,
	}
}

// highlight wraps the first occurrence of word in heading with a
// <span class="primary">. Both are escaped.
func highlight(heading, word string) template.HTML {
	i := -1
	if word != "" {
		i = strings.Index(heading, word)
	}
	if i < 0 {
		return template.HTML(template.HTMLEscapeString(heading))
	}
	return template.HTML(template.HTMLEscapeString(heading[:i]) +
		`<span class="primary">` + template.HTMLEscapeString(word) + `</span>` +
		template.HTMLEscapeString(heading[i+len(word):]))
}
