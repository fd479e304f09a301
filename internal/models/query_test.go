package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr error
		wantK   int
		wantKC  int
	}{
		{"empty query", &SearchQuery{Query: ""}, ErrEmptyQuery, 0, 0},
		{"defaults", &SearchQuery{Query: "x"}, nil, 20, 200},
		{"caps k", &SearchQuery{Query: "x", K: 5000, KCandidates: 6000}, nil, MaxK, 6000},
		{"candidates default above k", &SearchQuery{Query: "x", K: 500}, nil, 500, 501},
		{"candidates not above k", &SearchQuery{Query: "x", K: 20, KCandidates: 20}, ErrInvalidK, 20, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.query.K != tt.wantK || tt.query.KCandidates != tt.wantKC {
				t.Errorf("K/KCandidates = %d/%d, want %d/%d", tt.query.K, tt.query.KCandidates, tt.wantK, tt.wantKC)
			}
		})
	}
}

func TestSearchQuery_NegativeQuality(t *testing.T) {
	q := &SearchQuery{Query: "x", Quality: -1}
	if err := q.Validate(); err == nil {
		t.Error("expected error for negative quality")
	}
}
