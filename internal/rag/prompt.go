package rag

import (
	"fmt"
	"strings"
)

// Template placeholders.
const (
	PlaceholderQuestion = "{question}"
	PlaceholderContext  = "{context}"
)

// DefaultPromptTemplate is used when no template is configured.
const DefaultPromptTemplate = `Answer strictly from the context below. If the context does not contain the answer, say that you do not know.

Context:
{context}

Question: {question}
Answer:`

// PromptTemplate is a validated prompt with question and context placeholders.
type PromptTemplate struct {
	text string
}

// ParsePromptTemplate validates that text carries both placeholders.
func ParsePromptTemplate(text string) (*PromptTemplate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ConfigurationError{Field: "prompt_template", Message: "must not be empty"}
	}
	for _, p := range []string{PlaceholderQuestion, PlaceholderContext} {
		if !strings.Contains(text, p) {
			return nil, &ConfigurationError{Field: "prompt_template", Message: fmt.Sprintf("missing placeholder %s", p)}
		}
	}
	return &PromptTemplate{text: text}, nil
}

// String returns the raw template text.
func (t *PromptTemplate) String() string {
	return t.text
}

// Render substitutes both placeholders in one pass, so placeholder-like text
// inside the question or context is left as is.
func (t *PromptTemplate) Render(question, context string) string {
	r := strings.NewReplacer(PlaceholderQuestion, question, PlaceholderContext, context)
	return r.Replace(t.text)
}

// ContextOptions controls how documents are rendered into the prompt context.
type ContextOptions struct {
	// IncludeMetadata prefixes each document with its source description.
	IncludeMetadata bool
	// MaxChars caps the rendered context; 0 disables the cap.
	MaxChars int
}

// BuildContext joins documents with a blank line, in retrieval order.
// Documents that would push the context past MaxChars are dropped; a single
// oversized first document is truncated instead.
func BuildContext(docs []Document, opts ContextOptions) string {
	var b strings.Builder
	for i, doc := range docs {
		entry := renderDocument(doc, opts.IncludeMetadata)
		sep := ""
		if i > 0 {
			sep = "\n\n"
		}

		if opts.MaxChars > 0 && b.Len()+len(sep)+len(entry) > opts.MaxChars {
			if b.Len() == 0 {
				b.WriteString(truncate(entry, opts.MaxChars))
			}
			break
		}
		b.WriteString(sep)
		b.WriteString(entry)
	}
	return b.String()
}

func renderDocument(doc Document, includeMetadata bool) string {
	if !includeMetadata || doc.Metadata.IsZero() {
		return doc.Content
	}
	m := doc.Metadata
	return fmt.Sprintf("site: %s, type: %s, name: %s, size: %d, link: %s\n%s",
		m.SiteName, m.Type, m.Name, m.Size, m.Link, doc.Content)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
