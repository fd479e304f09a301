package models

// SearchResult represents a single reranked hit joined with its metadata.
type SearchResult struct {
	Rank     int     `json:"rank"`
	Ordinal  int     `json:"ordinal"`
	Title    string  `json:"title"`
	Link     string  `json:"link"`
	Views    int64   `json:"views"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query      string          `json:"query"`
	Results    []*SearchResult `json:"results"`
	Total      int             `json:"total"`
	Candidates int             `json:"candidates"`
	Backend    string          `json:"backend"`
	QueryTime  int64           `json:"query_time_ms"`
}
