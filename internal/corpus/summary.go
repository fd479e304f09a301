// Package corpus reads article summary files and page-view dumps and turns them into
// encodable items.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxLineBytes bounds a single summary line.
const maxLineBytes = 4 << 20

// ErrNoTitle is returned when a summary file has content before its first [[Title]] line.
var ErrNoTitle = errors.New("summary text before first title")

// Article is one titled entry of a summary file.
type Article struct {
	Title   string
	Summary []string
}

// SummaryReader streams articles from every *.txt file of a directory in sorted name order.
type SummaryReader struct {
	files []string
	next  int

	f       *os.File
	scanner *bufio.Scanner
	path    string

	title   string
	content []string
	open    bool
}

// NewSummaryReader lists the *.txt files of dir. Files are opened lazily.
func NewSummaryReader(dir string) (*SummaryReader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return &SummaryReader{files: files}, nil
}

// Files returns the summary files in read order.
func (r *SummaryReader) Files() []string { return r.files }

// Next returns the next article, or io.EOF once every file is consumed.
func (r *SummaryReader) Next() (Article, error) {
	for {
		if r.scanner == nil {
			if r.next >= len(r.files) {
				return Article{}, io.EOF
			}
			if err := r.openFile(r.files[r.next]); err != nil {
				return Article{}, err
			}
			r.next++
		}

		for r.scanner.Scan() {
			line := strings.TrimSpace(validUTF8(r.scanner.Text()))
			if line == "" {
				continue
			}
			if title, ok := parseTitle(line); ok {
				if r.open {
					a := Article{Title: r.title, Summary: r.content}
					r.title, r.content = title, nil
					return a, nil
				}
				r.title, r.content, r.open = title, nil, true
				continue
			}
			if !r.open {
				return Article{}, fmt.Errorf("%s: %w", r.path, ErrNoTitle)
			}
			r.content = append(r.content, line)
		}
		if err := r.scanner.Err(); err != nil {
			return Article{}, fmt.Errorf("scan %s: %w", r.path, err)
		}
		r.closeFile()

		// the last article of a file is only emitted when it has content
		if r.open {
			r.open = false
			if len(r.content) > 0 {
				a := Article{Title: r.title, Summary: r.content}
				r.title, r.content = "", nil
				return a, nil
			}
		}
	}
}

// Close releases the file currently being read.
func (r *SummaryReader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f, r.scanner = nil, nil
	return err
}

func (r *SummaryReader) openFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open summary file: %w", err)
	}
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	r.f, r.scanner, r.path = f, s, path
	return nil
}

func (r *SummaryReader) closeFile() {
	if r.f != nil {
		r.f.Close()
	}
	r.f, r.scanner = nil, nil
}

func parseTitle(line string) (string, bool) {
	if len(line) >= 4 && strings.HasPrefix(line, "[[") && strings.HasSuffix(line, "]]") {
		return line[2 : len(line)-2], true
	}
	return "", false
}

// validUTF8 replaces invalid sequences with the replacement character.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
