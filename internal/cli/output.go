// Package cli implements the vecsearch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is a human-readable table (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch SearchOutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

const maxTitleLen = 48

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		_, err := io.WriteString(w, renderResults(response))
		return err
	}
}

func renderResults(response *models.SearchResponse) string {
	var b strings.Builder
	if len(response.Results) == 0 {
		b.WriteString("No results\n")
	} else {
		b.WriteString(resultTable(response.Results).String())
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d of %d candidates in %dms (%s)",
		len(response.Results), response.Candidates, response.QueryTime, response.Backend)))
	b.WriteString("\n")
	return b.String()
}

func resultTable(results []*models.SearchResult) *table.Table {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			utils.Truncate(r.Title, maxTitleLen),
			r.Link,
			strconv.FormatInt(r.Views, 10),
			strconv.FormatFloat(r.Distance, 'f', 4, 64),
			strconv.FormatFloat(r.Score, 'f', 4, 64),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Title", "Link", "Views", "Distance", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 2:
				return numberStyle
			default:
				return cellStyle
			}
		})
}
