package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penlabhq/penlab/internal/shared/types"
)

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	r, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	return r
}

func TestConsoleLevelRoundTrip(t *testing.T) {
	tests := []struct {
		method string
		level  types.LogLevel
	}{
		{"log", types.LevelLog},
		{"warn", types.LevelWarn},
		{"error", types.LevelError},
		{"info", types.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r := newRuntime(t)
			result := r.Execute(context.Background(), "console."+tt.method+"('hello');", nil)

			require.NoError(t, result.Err)
			require.Len(t, result.Console, 1)
			assert.Equal(t, tt.level, result.Console[0].Level)
			assert.Equal(t, "hello", result.Console[0].Message)
		})
	}
}

func TestConsoleMultiArgumentJoin(t *testing.T) {
	r := newRuntime(t)
	result := r.Execute(context.Background(), `console.log("a", 1, {x:1});`, nil)

	require.NoError(t, result.Err)
	require.Len(t, result.Console, 1)
	assert.Equal(t, "a 1 {\n  \"x\": 1\n}", result.Console[0].Message)
}

func TestConsoleStringifyStable(t *testing.T) {
	r1 := newRuntime(t)
	r2 := newRuntime(t)
	script := `console.log({b: 2, a: 1, c: [1, "two"]});`

	first := r1.Execute(context.Background(), script, nil)
	second := r2.Execute(context.Background(), script, nil)

	require.Len(t, first.Console, 1)
	require.Len(t, second.Console, 1)
	assert.Equal(t, first.Console[0].Message, second.Console[0].Message)
}

func TestUncaughtExceptionCaptured(t *testing.T) {
	r := newRuntime(t)
	result := r.Execute(context.Background(), `throw new Error("boom");`, nil)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "boom")
}

func TestConsoleBeforeThrowRetained(t *testing.T) {
	r := newRuntime(t)
	result := r.Execute(context.Background(), `console.log("before"); throw new Error("boom");`, nil)

	require.Error(t, result.Err)
	require.Len(t, result.Console, 1)
	assert.Equal(t, "before", result.Console[0].Message)
}

func TestHostReachingGlobalsWithheld(t *testing.T) {
	scripts := []struct {
		name   string
		script string
	}{
		{"require", "typeof require"},
		{"process", "typeof process"},
		{"module", "typeof module"},
		{"window parent", "typeof window.parent"},
	}

	for _, tt := range scripts {
		t.Run(tt.name, func(t *testing.T) {
			r := newRuntime(t)
			result := r.Execute(context.Background(), "console.log("+tt.script+");", nil)

			require.NoError(t, result.Err)
			require.Len(t, result.Console, 1)
			assert.Equal(t, "undefined", result.Console[0].Message)
		})
	}
}

func TestTimersAreNoOps(t *testing.T) {
	r := newRuntime(t)
	result := r.Execute(context.Background(), `setTimeout(function () { console.log("late"); }, 0); console.log("sync");`, nil)

	require.NoError(t, result.Err)
	require.Len(t, result.Console, 1)
	assert.Equal(t, "sync", result.Console[0].Message)
}

func TestExecutionTimeout(t *testing.T) {
	r, err := New(Config{Timeout: 100 * time.Millisecond, MaxCallStack: 1024}, nil)
	require.NoError(t, err)

	result := r.Execute(context.Background(), "while (true) {}", nil)
	require.Error(t, result.Err)
}

func TestEmitterPreservesOrder(t *testing.T) {
	var emitted []Entry
	r, err := New(DefaultConfig(), func(e Entry) { emitted = append(emitted, e) })
	require.NoError(t, err)

	result := r.Execute(context.Background(), `console.log("one"); console.warn("two"); console.info("three");`, nil)

	require.NoError(t, result.Err)
	require.Len(t, emitted, 3)
	assert.Equal(t, result.Console, emitted)
}

func TestDocumentQueryAfterThrow(t *testing.T) {
	dom, err := NewDOM(`<html><body><div id="app" class="box">hello</div></body></html>`)
	require.NoError(t, err)

	r := newRuntime(t)
	result := r.Execute(context.Background(), `throw new Error("boom");`, dom)

	// The script failed, but the document it was evaluated against is
	// still fully rendered and queryable.
	require.Error(t, result.Err)
	assert.Equal(t, 1, dom.Query("#app").Length())
}

func TestDocumentProxyReads(t *testing.T) {
	dom, err := NewDOM(`<html><head><title>pen</title></head><body><div id="app" class="box" data-k="v">hello</div><p class="box">b</p></body></html>`)
	require.NoError(t, err)

	r := newRuntime(t)
	script := `
		var el = document.getElementById("app");
		console.log(el.tagName, el.className, el.textContent, el.getAttribute("data-k"));
		console.log(document.querySelectorAll(".box").length);
		console.log(document.title);
	`
	result := r.Execute(context.Background(), script, dom)

	require.NoError(t, result.Err)
	require.Len(t, result.Console, 3)
	assert.Equal(t, "DIV box hello v", result.Console[0].Message)
	assert.Equal(t, "2", result.Console[1].Message)
	assert.Equal(t, "pen", result.Console[2].Message)
}

func TestDocumentProxyRecordsMutations(t *testing.T) {
	dom, err := NewDOM(`<html><body><div id="app"></div></body></html>`)
	require.NoError(t, err)

	r := newRuntime(t)
	result := r.Execute(context.Background(), `document.querySelector("#app").setAttribute("data-x", "1");`, dom)

	require.NoError(t, result.Err)
	muts := dom.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, Mutation{Selector: "#app", Attribute: "data-x", Value: "1"}, muts[0])
}

func TestMissingElementIsNull(t *testing.T) {
	dom, err := NewDOM(`<html><body></body></html>`)
	require.NoError(t, err)

	r := newRuntime(t)
	result := r.Execute(context.Background(), `console.log(document.querySelector("#nope"));`, dom)

	require.NoError(t, result.Err)
	require.Len(t, result.Console, 1)
	assert.Equal(t, "null", result.Console[0].Message)
}
