package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Evacuate\n\n- go to **high ground**\n- bring a go-bag")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Evacuate</h1>")
	assert.Contains(t, out, "<strong>high ground</strong>")
	assert.Contains(t, out, "<li>bring a go-bag</li>")

	out, err = RenderMarkdown("hi <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")

	out, err = RenderMarkdown("")
	require.NoError(t, err)
	assert.Empty(t, out)
}
