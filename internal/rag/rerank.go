package rag

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Reranker reorders retrieved documents before generation.
type Reranker interface {
	// Name identifies the reranker in the query ledger.
	Name() string
	Rerank(ctx context.Context, queryText string, docs []Document) ([]Document, error)
}

// PassThroughReranker keeps the vector store's order.
type PassThroughReranker struct{}

// Name implements Reranker.
func (PassThroughReranker) Name() string { return "none" }

// Rerank returns docs unchanged.
func (PassThroughReranker) Rerank(_ context.Context, _ string, docs []Document) ([]Document, error) {
	return docs, nil
}

// LexicalReranker blends vector similarity with keyword overlap between the
// query and each document's content and name.
type LexicalReranker struct{}

// Name implements Reranker.
func (LexicalReranker) Name() string { return "lexical" }

// Rerank sorts documents by similarity plus lexical score. Ties keep retrieval order.
func (LexicalReranker) Rerank(_ context.Context, queryText string, docs []Document) ([]Document, error) {
	type scored struct {
		doc   Document
		score float64
	}

	ranked := make([]scored, len(docs))
	for i, doc := range docs {
		similarity := 1 - doc.Metadata.Distance
		ranked[i] = scored{
			doc:   doc,
			score: similarity + float64(lexicalScore(queryText, doc.Content, doc.Metadata.Name)),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]Document, len(ranked))
	for i, r := range ranked {
		out[i] = r.doc
	}
	return out, nil
}

// NewReranker returns the reranker registered under name.
func NewReranker(name string) (Reranker, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return PassThroughReranker{}, nil
	case "lexical":
		return LexicalReranker{}, nil
	default:
		return nil, &ConfigurationError{Field: "reranker", Message: "unknown reranker " + name}
	}
}

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	titleMatchBonus    = float32(0.1)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {}, "with": {},
}

// lexicalScore rates keyword overlap of query with a document, in [0, maxLexicalScore].
// Each query token found in title adds titleMatchBonus.
func lexicalScore(query, text, title string) float32 {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	var score float32
	if textTokens := tokenize(text); len(textTokens) > 0 {
		freq := make(map[string]int, len(textTokens))
		for _, token := range textTokens {
			freq[token]++
		}
		var matches int
		for _, token := range queryTokens {
			matches += freq[token]
		}
		score = (float32(matches) / (1 + float32(len(textTokens)))) * lexicalLengthScale
	}

	if titleTokens := tokenize(title); len(titleTokens) > 0 {
		titleSet := make(map[string]struct{}, len(titleTokens))
		for _, token := range titleTokens {
			titleSet[token] = struct{}{}
		}
		for _, token := range queryTokens {
			if _, ok := titleSet[token]; ok {
				score += titleMatchBonus
			}
		}
	}

	if score > maxLexicalScore {
		return maxLexicalScore
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func filterStopwords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	return result
}
