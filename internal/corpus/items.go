package corpus

import (
	"errors"
	"io"
	"strings"

	"github.com/hyperjump/vecsearch/internal/models"
)

// DefaultLang is the wiki language used for links when none is configured.
const DefaultLang = "de"

// Link returns the article URL, with an optional section anchor.
func Link(lang, title, section string) string {
	if lang == "" {
		lang = DefaultLang
	}
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(lang)
	b.WriteString(".wikipedia.org/wiki/")
	b.WriteString(strings.ReplaceAll(title, " ", "_"))
	if section != "" {
		b.WriteByte('#')
		b.WriteString(strings.ReplaceAll(section, " ", "_"))
	}
	return b.String()
}

// ViewCounter reports the popularity of a title.
type ViewCounter interface {
	Views(title string) int64
}

// Items expands an article into its encodable items: the title, then the first summary
// line when present. Both share the article link and view count.
func Items(a Article, lang string, views ViewCounter) []models.Item {
	link := Link(lang, a.Title, "")
	var n int64
	if views != nil {
		n = views.Views(a.Title)
	}
	items := []models.Item{{Text: a.Title, Title: a.Title, Link: link, Views: n}}
	if len(a.Summary) > 0 {
		items = append(items, models.Item{Text: a.Summary[0], Title: a.Title, Link: link, Views: n})
	}
	return items
}

// ArticleReader yields articles until io.EOF.
type ArticleReader interface {
	Next() (Article, error)
}

// ItemSource flattens articles into items. Limit > 0 stops after that many articles.
type ItemSource struct {
	Articles ArticleReader
	Lang     string
	Views    ViewCounter
	Limit    int

	pending  []models.Item
	articles int
	done     bool
}

// Next returns the next item, or io.EOF when the articles are exhausted or the limit is hit.
func (s *ItemSource) Next() (models.Item, error) {
	for len(s.pending) == 0 {
		if s.done || (s.Limit > 0 && s.articles >= s.Limit) {
			return models.Item{}, io.EOF
		}
		a, err := s.Articles.Next()
		if errors.Is(err, io.EOF) {
			s.done = true
			return models.Item{}, io.EOF
		}
		if err != nil {
			return models.Item{}, err
		}
		s.articles++
		s.pending = Items(a, s.Lang, s.Views)
	}
	it := s.pending[0]
	s.pending = s.pending[1:]
	return it, nil
}

// ArticlesRead returns how many articles have been consumed.
func (s *ItemSource) ArticlesRead() int { return s.articles }
