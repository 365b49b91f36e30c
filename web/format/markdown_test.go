package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHTML(t *testing.T) {
	html := RenderHTML("**Data Science**\n\n- Calculus\n- Statistics")
	assert.Contains(t, html, "<strong>Data Science</strong>")
	assert.Contains(t, html, "<li>Calculus</li>")

	assert.Empty(t, RenderHTML(""))
}

func TestRenderHTMLSkipsRawHTML(t *testing.T) {
	html := RenderHTML(`hello <script>alert("x")</script>`)
	assert.NotContains(t, html, "<script>")
}

func TestPreprocessAssistantText(t *testing.T) {
	assert.Equal(t, `"quoted" and 'single'`, PreprocessAssistantText("“quoted” and ‘single’"))
	assert.Equal(t, "", PreprocessAssistantText(""))
}
