package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoResolvesToTextOffTTY(t *testing.T) {
	r := NewRenderer(new(bytes.Buffer), new(bytes.Buffer), ModeAuto)
	assert.Equal(t, ModeText, r.Mode())
}

func TestTextTable(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, new(bytes.Buffer), ModeText)

	r.Table([]string{"token", "head"}, [][]string{
		{"fox", "jumps"},
		{"jumps", "jumps"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "fox\tjumps", lines[0])
}

func TestTableMode(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, new(bytes.Buffer), ModeTable)

	r.Table([]string{"token"}, [][]string{{"fox"}})

	out := buf.String()
	assert.Contains(t, out, "TOKEN")
	assert.Contains(t, out, "fox")
}

func TestJSONValue(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, new(bytes.Buffer), ModeJSON)

	require.True(t, r.Structured())
	require.NoError(t, r.Value(map[string]int{"nsubj": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["nsubj"])

	// Decorative text is suppressed in structured modes.
	r.Textf("noise\n")
	assert.NotContains(t, buf.String(), "noise")
}

func TestYAMLValue(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, new(bytes.Buffer), ModeYAML)

	require.NoError(t, r.Value(map[string]int{"nsubj": 2}))
	assert.Contains(t, buf.String(), "nsubj: 2")
}
