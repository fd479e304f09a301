package corpus

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readAll(t *testing.T, r *SummaryReader) []Article {
	t.Helper()
	var out []Article
	for {
		a, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, a)
	}
}

func TestSummaryReader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "[[Zebra]]\nStriped animal.\n\n[[Empty Tail]]\n")
	writeFile(t, dir, "a.txt", "[[Albert Einstein]]\nPhysicist.\nBorn in Ulm.\n[[No Summary]]\n[[Berlin]]\nCapital.\n")
	writeFile(t, dir, "ignored.md", "[[Ignored]]\ntext\n")

	r, err := NewSummaryReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := readAll(t, r)
	want := []Article{
		{Title: "Albert Einstein", Summary: []string{"Physicist.", "Born in Ulm."}},
		{Title: "No Summary"},
		{Title: "Berlin", Summary: []string{"Capital."}},
		{Title: "Zebra", Summary: []string{"Striped animal."}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("articles = %#v\nwant %#v", got, want)
	}
	if len(r.Files()) != 2 {
		t.Errorf("files = %v, want 2 .txt files", r.Files())
	}
}

func TestSummaryReader_TextBeforeTitle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "orphan line\n[[Title]]\nx\n")
	r, err := NewSummaryReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.Next(); !errors.Is(err, ErrNoTitle) {
		t.Errorf("err = %v, want ErrNoTitle", err)
	}
}

func TestLink(t *testing.T) {
	tests := []struct {
		lang, title, section string
		want                 string
	}{
		{"de", "Albert Einstein", "", "https://de.wikipedia.org/wiki/Albert_Einstein"},
		{"", "Berlin", "", "https://de.wikipedia.org/wiki/Berlin"},
		{"en", "Go (programming language)", "Early history", "https://en.wikipedia.org/wiki/Go_(programming_language)#Early_history"},
	}
	for _, tt := range tests {
		if got := Link(tt.lang, tt.title, tt.section); got != tt.want {
			t.Errorf("Link(%q, %q, %q) = %q, want %q", tt.lang, tt.title, tt.section, got, tt.want)
		}
	}
}

type fixedViews map[string]int64

func (f fixedViews) Views(title string) int64 { return f[title] }

func TestItems(t *testing.T) {
	a := Article{Title: "Berlin", Summary: []string{"Capital of Germany.", "Second line."}}
	items := Items(a, "de", fixedViews{"Berlin": 42})
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Text != "Berlin" || items[1].Text != "Capital of Germany." {
		t.Errorf("texts = %q, %q", items[0].Text, items[1].Text)
	}
	for _, it := range items {
		if it.Link != "https://de.wikipedia.org/wiki/Berlin" || it.Views != 42 || it.Title != "Berlin" {
			t.Errorf("item = %+v", it)
		}
	}

	if got := Items(Article{Title: "Solo"}, "de", nil); len(got) != 1 || got[0].Views != 0 {
		t.Errorf("title-only article = %+v", got)
	}
}

type sliceArticles struct {
	articles []Article
}

func (s *sliceArticles) Next() (Article, error) {
	if len(s.articles) == 0 {
		return Article{}, io.EOF
	}
	a := s.articles[0]
	s.articles = s.articles[1:]
	return a, nil
}

func TestItemSource_Limit(t *testing.T) {
	src := &ItemSource{
		Articles: &sliceArticles{articles: []Article{
			{Title: "A", Summary: []string{"a"}},
			{Title: "B"},
			{Title: "C", Summary: []string{"c"}},
		}},
		Limit: 2,
	}
	var texts []string
	for {
		it, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		texts = append(texts, it.Text)
	}
	if want := []string{"A", "a", "B"}; !reflect.DeepEqual(texts, want) {
		t.Errorf("texts = %v, want %v", texts, want)
	}
	if src.ArticlesRead() != 2 {
		t.Errorf("ArticlesRead = %d, want 2", src.ArticlesRead())
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Albert_Einstein", "albert_einstein", true},
		{"Albert Einstein", "albert_einstein", true},
		{`"Quoted"`, "quoted", true},
		{`"Say \"hi\""`, "say_hi", true},
		{"-", "", false},
		{"_", "", false},
		{"#", "", false},
		{"", "", false},
		{`""`, "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeTitle(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeTitle(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

const dump = `de.wikipedia Albert_Einstein 736 desktop 100 A1
de.wikipedia Albert_Einstein 736 mobile-web 50 B1
de.wikipedia Einstein 736 desktop 5 C1
de.wikipedia Diskussion:Albert_Einstein 736 desktop 999 D1
de.wikipedia Missing null desktop 7 E1
de.wikipedia Berlin 3354 desktop 20 F1
de.wikipedia - 9 desktop 3 G1
`

func TestLoadPageViews(t *testing.T) {
	p, err := LoadPageViews(strings.NewReader(dump))
	if err != nil {
		t.Fatal(err)
	}
	if p.Pages() != 3 {
		t.Errorf("Pages = %d, want 3", p.Pages())
	}
	tests := []struct {
		title string
		want  int64
	}{
		{"Albert Einstein", 155},
		{"Einstein", 155},
		{"berlin", 20},
		{"Missing", 0},
		{"Unknown", 0},
	}
	for _, tt := range tests {
		if got := p.Views(tt.title); got != tt.want {
			t.Errorf("Views(%q) = %d, want %d", tt.title, got, tt.want)
		}
	}
	info, ok := p.Page(736)
	if !ok || !reflect.DeepEqual(info.Titles, []string{"albert_einstein", "einstein"}) {
		t.Errorf("page 736 = %+v", info)
	}
	if info, ok := p.Page(9); !ok || info.Views != 3 || len(info.Titles) != 0 {
		t.Errorf("placeholder page = %+v, %v", info, ok)
	}
}

func TestLoadPageViews_Malformed(t *testing.T) {
	_, err := LoadPageViews(strings.NewReader("de.wikipedia only three\n"))
	if !errors.Is(err, ErrMalformedLine) {
		t.Errorf("err = %v, want ErrMalformedLine", err)
	}
	if _, err := LoadPageViews(strings.NewReader("de.wikipedia X 1 desktop many Z\n")); err == nil {
		t.Error("expected error for non-numeric views")
	}
}

func TestLoadPageViewsFile_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(dump)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "pageviews.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPageViewsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Views("Berlin"); got != 20 {
		t.Errorf("Views(Berlin) = %d, want 20", got)
	}
}

func TestPopularity_Nil(t *testing.T) {
	var p *Popularity
	if p.Views("x") != 0 {
		t.Error("nil popularity should report 0")
	}
}
