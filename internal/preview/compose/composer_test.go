package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/penlabhq/penlab/internal/shared/types"
)

func TestDocumentDeterministic(t *testing.T) {
	bundle := types.SourceBundle{
		HTML:       `<div id="app">hello</div>`,
		CSS:        `#app { color: red; }`,
		JavaScript: `console.log("ready");`,
	}

	first := Document(bundle)
	second := Document(bundle)

	assert.Equal(t, first, second, "composing the same bundle twice must be byte-identical")
}

func TestDocumentEmbedsBundleVerbatim(t *testing.T) {
	bundle := types.SourceBundle{
		HTML:       `<section class="weird"><unclosed>`,
		CSS:        `.weird { broken css !!!`,
		JavaScript: `this is not even javascript`,
	}

	doc := Document(bundle)

	// Pass-through by design: malformed input is never rejected or rewritten.
	assert.Contains(t, doc, bundle.HTML)
	assert.Contains(t, doc, bundle.CSS)
	assert.Contains(t, doc, bundle.JavaScript)
}

func TestDocumentStructure(t *testing.T) {
	doc := Document(types.SourceBundle{})

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, `<meta charset="UTF-8">`)
	assert.Contains(t, doc, "<style>")
	assert.Contains(t, doc, "box-sizing: border-box", "baseline stylesheet present")
	assert.Contains(t, doc, "window.parent.postMessage")
	assert.Contains(t, doc, `channel: "console"`)
	assert.Contains(t, doc, "window.onerror")
}

func TestDocumentGuardsUserScript(t *testing.T) {
	doc := Document(types.SourceBundle{JavaScript: `throw new Error("boom");`})

	// The user script must sit inside the guarded block, after the
	// instrumentation script.
	instrAt := strings.Index(doc, "window.parent.postMessage")
	guardAt := strings.Index(doc, "try {")
	userAt := strings.Index(doc, `throw new Error("boom");`)
	catchAt := strings.Index(doc, "} catch (err)")

	assert.Greater(t, guardAt, instrAt)
	assert.Greater(t, userAt, guardAt)
	assert.Greater(t, catchAt, userAt)
}

func TestSandboxAttributesStrict(t *testing.T) {
	// Scripts only: never grant same-origin access to embedded user code.
	assert.Equal(t, "allow-scripts", SandboxAttributes)
	assert.NotContains(t, SandboxAttributes, "allow-same-origin")
}
