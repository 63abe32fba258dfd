package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCSSDefault(t *testing.T) {
	css, fromUser := ResolveCSS(filepath.Join(t.TempDir(), "missing.css"))
	assert.False(t, fromUser)
	assert.Equal(t, defaultCSS, css)
	assert.Contains(t, css, ".popup")
}

func TestResolveCSSUserOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.css")
	require.NoError(t, os.WriteFile(path, []byte(".popup { opacity: 0.5; }"), 0600))

	css, fromUser := ResolveCSS(path)
	assert.True(t, fromUser)
	assert.Equal(t, ".popup { opacity: 0.5; }", css)
}

func TestResolveCSSEmptyPath(t *testing.T) {
	css, fromUser := ResolveCSS("")
	assert.False(t, fromUser)
	assert.Equal(t, defaultCSS, css)
}
