package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	ids := make([]int64, len(words))
	for i, w := range words {
		ids[i] = int64(HashString(w) % 30000)
	}
	return pack(ids, 101, 102, maxTokens)
}

// pack frames ids with cls/sep and pads to maxTokens.
func pack(ids []int64, cls, sep int64, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = cls
	attentionMask[0] = 1

	pos := 1
	for _, id := range ids {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sep
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// VocabTokenizer is a WordPiece tokenizer backed by a vocab.txt file (one token per
// line, line number is the id).
type VocabTokenizer struct {
	vocab     map[string]int64
	lowercase bool
	unk       int64
	cls       int64
	sep       int64
}

// LoadVocabTokenizer reads vocab from path. Text is lowercased when the vocabulary
// has no upper-case entries.
func LoadVocabTokenizer(path string) (*VocabTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocab: %w", err)
	}
	defer f.Close()

	t := &VocabTokenizer{vocab: make(map[string]int64), lowercase: true}
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		t.vocab[tok] = id
		if t.lowercase && tok != strings.ToLower(tok) && !strings.HasPrefix(tok, "[") {
			t.lowercase = false
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocab: %w", err)
	}
	var ok bool
	if t.unk, ok = t.vocab["[UNK]"]; !ok {
		return nil, fmt.Errorf("vocab %s has no [UNK] token", path)
	}
	if t.cls, ok = t.vocab["[CLS]"]; !ok {
		return nil, fmt.Errorf("vocab %s has no [CLS] token", path)
	}
	if t.sep, ok = t.vocab["[SEP]"]; !ok {
		return nil, fmt.Errorf("vocab %s has no [SEP] token", path)
	}
	return t, nil
}

// Tokenize splits on whitespace and punctuation and applies greedy longest-match
// WordPiece to each word.
func (t *VocabTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	var ids []int64
	for _, word := range splitPunct(text) {
		ids = append(ids, t.wordPiece(word)...)
	}
	return pack(ids, t.cls, t.sep, maxTokens)
}

func (t *VocabTokenizer) wordPiece(word string) []int64 {
	runes := []rune(word)
	var out []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{t.unk}
		}
		out = append(out, found)
		start = end
	}
	return out
}

func splitPunct(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			out = append(out, string(r))
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	f := strings.Fields(text)
	if len(f) == 0 {
		return nil
	}
	return f
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
