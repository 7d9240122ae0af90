package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

//go:embed templates/*.tmpl templates/style.css
var templateFS embed.FS

// signLink is one entry of a sign navigation list.
type signLink struct {
	Slug types.Sign
	JA   string
}

type indexView struct {
	Base   string
	Title  string
	Date   string
	Global types.ForecastBlock
	Signs  []signLink
}

type signView struct {
	Base   string
	Title  string
	Page   types.SignPage
	Others []signLink
}

// Renderer turns payloads into HTML pages. Every page carries
// <base href> so links resolve under the configured base path.
type Renderer struct {
	tmpl     *template.Template
	basePath string
}

// NewRenderer parses the embedded templates.
func NewRenderer(basePath string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, basePath: config.NormalizeBasePath(basePath)}, nil
}

// BasePath returns the normalized base path.
func (r *Renderer) BasePath() string { return r.basePath }

// Index renders the entry page.
func (r *Renderer) Index(w io.Writer, payload *types.DailyPayload) error {
	return r.tmpl.ExecuteTemplate(w, "index", indexView{
		Base:   r.basePath,
		Title:  "今日の星座占い " + payload.Date,
		Date:   payload.Date,
		Global: payload.Global,
		Signs:  signLinks(""),
	})
}

// Sign renders one sign page.
func (r *Renderer) Sign(w io.Writer, page types.SignPage) error {
	return r.tmpl.ExecuteTemplate(w, "sign", signView{
		Base:   r.basePath,
		Title:  page.SignJA + " / " + page.Date,
		Page:   page,
		Others: signLinks(page.Sign),
	})
}

// Stylesheet returns the embedded style.css.
func Stylesheet() ([]byte, error) {
	return templateFS.ReadFile("templates/style.css")
}

func signLinks(except types.Sign) []signLink {
	links := make([]signLink, 0, len(types.Signs))
	for _, s := range types.Signs {
		if s == except {
			continue
		}
		links = append(links, signLink{Slug: s, JA: s.JA()})
	}
	return links
}
