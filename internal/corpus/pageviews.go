package corpus

import (
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// invalidTitles holds the dump's placeholder titles; any substring of it is rejected.
const invalidTitles = "-_#"

const discussionPrefix = "Diskussion:"

// ErrMalformedLine is returned for a page-view line without the six expected fields.
var ErrMalformedLine = errors.New("malformed page-view line")

// PageInfo aggregates the views of one page id across its titles.
type PageInfo struct {
	ID     int64
	Titles []string
	Views  int64
}

// Popularity maps normalized titles to page views.
type Popularity struct {
	pages   map[int64]*PageInfo
	byTitle map[string]*PageInfo
}

// Views returns the total views of the page titled title, or 0 when unknown.
func (p *Popularity) Views(title string) int64 {
	if p == nil {
		return 0
	}
	t, ok := NormalizeTitle(title)
	if !ok {
		return 0
	}
	if info, ok := p.byTitle[t]; ok {
		return info.Views
	}
	return 0
}

// Pages returns the number of distinct page ids.
func (p *Popularity) Pages() int { return len(p.pages) }

// Page returns the aggregate for a page id.
func (p *Popularity) Page(id int64) (PageInfo, bool) {
	info, ok := p.pages[id]
	if !ok {
		return PageInfo{}, false
	}
	return *info, true
}

// NormalizeTitle lowercases title and replaces spaces with underscores. Quoted titles are
// unquoted. Placeholder and empty titles report false.
func NormalizeTitle(title string) (string, bool) {
	if strings.Contains(invalidTitles, title) {
		return "", false
	}
	if strings.HasPrefix(title, `"`) && strings.HasSuffix(title, `"`) {
		if len(title) >= 2 {
			title = title[1 : len(title)-1]
		} else {
			title = ""
		}
		title = strings.ReplaceAll(title, `\"`, "")
	}
	if title == "" {
		return "", false
	}
	return strings.ReplaceAll(strings.ToLower(title), " ", "_"), true
}

// LoadPageViews parses a page-view dump with lines of the form
// "project title page_id access views extra". Lines with a null page id and discussion
// pages are skipped; views are summed per page id.
func LoadPageViews(r io.Reader) (*Popularity, error) {
	p := &Popularity{
		pages:   make(map[int64]*PageInfo),
		byTitle: make(map[string]*PageInfo),
	}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, " ")
		if len(fields) != 6 {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrMalformedLine)
		}
		title, rawID, rawViews := fields[1], fields[2], fields[4]
		views, err := strconv.ParseInt(rawViews, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: views: %w", lineNo, err)
		}
		if rawID == "null" {
			continue
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: page id: %w", lineNo, err)
		}
		if strings.HasPrefix(title, discussionPrefix) {
			continue
		}
		p.add(id, title, views)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan page views: %w", err)
	}
	return p, nil
}

func (p *Popularity) add(id int64, title string, views int64) {
	info, ok := p.pages[id]
	if !ok {
		info = &PageInfo{ID: id}
		p.pages[id] = info
	}
	info.Views += views
	t, valid := NormalizeTitle(title)
	if !valid {
		return
	}
	for _, existing := range info.Titles {
		if existing == t {
			return
		}
	}
	info.Titles = append(info.Titles, t)
	// a later page id claiming the same title wins
	p.byTitle[t] = info
}

// LoadPageViewsFile opens path, decompressing .gz, .zst and .bz2 dumps by extension.
func LoadPageViewsFile(path string) (*Popularity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page views: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(path, ".bz2"):
		r = bzip2.NewReader(f)
	}
	return LoadPageViews(r)
}
