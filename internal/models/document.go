// Package models defines core data structures for corpus items, queries, and search results.
package models

// Item is one encodable unit of the corpus. Several items may share a link, for
// example an article title and the first line of its summary.
type Item struct {
	Text  string `json:"text"`
	Title string `json:"title"`
	Link  string `json:"link"`
	Views int64  `json:"views"`
}
