// Package render builds the HTML fragments the host site embeds: the
// bookmark button, the bookmark list and the admin count box.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"

	"github.com/steemit/bookmarks/internal/models"
	"github.com/steemit/bookmarks/pkg/config"
)

// Template names
const (
	ButtonTemplate    = "button.html"
	ListTemplate      = "list.html"
	ContainerTemplate = "container.html"
	MetaBoxTemplate   = "metabox.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// ButtonView is the bookmark toggle shown under a post
type ButtonView struct {
	PostID     int64
	Bookmarked bool
	LoaderURL  string
}

// ListItem is one resolved bookmark
type ListItem struct {
	URL   string
	Title string
}

// ListView is the viewer's bookmark list. Empty means the viewer has no
// bookmarks at all; a non-empty set whose posts are all gone renders as an
// empty list instead of the message.
type ListView struct {
	Empty bool
	Items []ListItem
}

// ContainerView wraps the list with the refresh control
type ContainerView struct {
	List        ListView
	ShowRefresh bool
}

// MetaBoxView is the admin panel with the bookmark count of a post
type MetaBoxView struct {
	Count       int64
	ShowRefresh bool
}

// Renderer turns bookmark state into view models and HTML
type Renderer struct {
	site config.SiteConfig
	tmpl *template.Template
}

// New parses the embedded templates
func New(site config.SiteConfig) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{site: site, tmpl: tmpl}, nil
}

// Templates returns the parsed template set for the HTTP engine
func (r *Renderer) Templates() *template.Template {
	return r.tmpl
}

// Permalink is the public URL of a post
func (r *Renderer) Permalink(p *models.Post) string {
	if p.Slug == "" {
		return r.site.URL + "/?p=" + strconv.FormatInt(p.ID, 10)
	}
	return r.site.URL + "/" + p.Slug + "/"
}

// Button builds the toggle view for a post
func (r *Renderer) Button(postID int64, bookmarked bool) ButtonView {
	return ButtonView{
		PostID:     postID,
		Bookmarked: bookmarked,
		LoaderURL:  r.site.AssetsURL + "/images/loader.gif",
	}
}

// List resolves bookmarked ids against the posts that still exist, keeping
// the order of ids
func (r *Renderer) List(ids []int64, posts []*models.Post) ListView {
	if len(ids) == 0 {
		return ListView{Empty: true}
	}

	byID := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	items := make([]ListItem, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, ListItem{URL: r.Permalink(p), Title: p.Title})
	}
	return ListView{Items: items}
}

// Container wraps a list with the refresh button when there is anything
// to refresh
func (r *Renderer) Container(list ListView) ContainerView {
	return ContainerView{List: list, ShowRefresh: !list.Empty}
}

// MetaBox builds the admin count view
func (r *Renderer) MetaBox(count int64) MetaBoxView {
	return MetaBoxView{Count: count, ShowRefresh: true}
}

// Render executes a named template into a string
func (r *Renderer) Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
