// Package ingest extracts parseable sentences from documents so whole pages
// can be fed through the parse pipeline.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// maxDocumentBytes caps how much of a remote document is read.
const maxDocumentBytes = 4 << 20

// markdownNoise strips markdown syntax left over after HTML conversion so
// only prose reaches the models.
var markdownNoise = regexp.MustCompile("[#*`_>\\[\\]()|]")

// sentenceEnd splits prose into sentences on terminal punctuation followed
// by whitespace. Intentionally naive: segmentation quality is the model's
// job, this only breaks documents into parse-sized requests.
var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// danglingPunct re-attaches punctuation separated from its word by markup
// removal.
var danglingPunct = regexp.MustCompile(`\s+([.!?,;:])`)

// Source reads a document from a local path or an http(s) URL and returns
// the sentences it contains.
func Source(ctx context.Context, src string) ([]string, error) {
	var raw []byte
	var err error

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		raw, err = fetch(ctx, src)
	} else {
		raw, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, err
	}

	text := string(raw)
	if looksLikeHTML(text) {
		md, err := htmltomarkdown.ConvertString(text)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from HTML: %w", err)
		}
		text = md
	}

	return Sentences(text), nil
}

// paragraphBreak separates blocks so headings never merge into the sentence
// that follows them.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Sentences splits plain or markdown text into individual sentences,
// dropping headings, fragments and leftover markup.
func Sentences(text string) []string {
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = markdownNoise.ReplaceAllString(para, " ")

		// Keep the terminal punctuation the split would consume.
		marked := sentenceEnd.ReplaceAllString(para, "$1\x00")

		for _, part := range strings.Split(marked, "\x00") {
			s := strings.Join(strings.Fields(part), " ")
			s = danglingPunct.ReplaceAllString(s, "$1")
			// Two words minimum; anything shorter is a heading or fragment.
			if len(strings.Fields(s)) < 2 {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") ||
		strings.Contains(head, "<body") || strings.Contains(head, "<div") ||
		strings.Contains(head, "<p>")
}
