// Package compose builds self-contained preview documents.
//
// Composition is a pure string transformation: the same SourceBundle always
// yields a byte-identical document. Nothing is validated or rewritten: a
// broken buffer produces a broken preview, which is the point of a sandbox.
package compose

import (
	"strings"

	"github.com/penlabhq/penlab/internal/shared/types"
)

// SandboxAttributes is the iframe sandbox attribute value the host must use
// when embedding a composed document. Script execution is permitted, but
// same-origin privileges are withheld so the preview can never reach into
// host page state.
const SandboxAttributes = "allow-scripts"

// ConsoleChannel tags every message the instrumentation posts to the parent
// context. The host ignores messages on any other channel.
const ConsoleChannel = "console"

// baselineCSS is merged ahead of the user stylesheet: a margin reset and a
// default font so an empty bundle still renders sensibly.
const baselineCSS = `* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: system-ui, -apple-system, sans-serif; }`

// instrumentation shadows the console methods and installs a global error
// handler. Each call runs the real implementation first, then forwards a
// structured message to the parent. Arguments stringify as: strings
// verbatim, objects via JSON.stringify with two-space indent, everything
// else via String(), joined with single spaces.
const instrumentation = `(function () {
  var levels = ["log", "warn", "error", "info"];
  function stringify(arg) {
    if (typeof arg === "string") return arg;
    if (arg !== null && typeof arg === "object") {
      try { return JSON.stringify(arg, null, 2); } catch (e) { return String(arg); }
    }
    return String(arg);
  }
  function forward(level, args) {
    var parts = [];
    for (var i = 0; i < args.length; i++) parts.push(stringify(args[i]));
    window.parent.postMessage({
      channel: "console",
      level: level,
      message: parts.join(" "),
      timestamp: new Date().toISOString()
    }, "*");
  }
  levels.forEach(function (level) {
    var original = console[level];
    console[level] = function () {
      original.apply(console, arguments);
      forward(level, arguments);
    };
  });
  window.onerror = function (message, source, line, col) {
    forward("error", [message + " (" + (source || "inline") + ":" + line + ":" + col + ")"]);
  };
})();`

// Document composes a complete HTML5 document from the bundle. The user CSS
// follows the baseline stylesheet, the user HTML lands verbatim in the body,
// and the user JavaScript runs inside a guarded block so a synchronous throw
// surfaces as an error-level console message instead of silently aborting
// document evaluation.
func Document(bundle types.SourceBundle) string {
	var b strings.Builder
	b.Grow(len(bundle.HTML) + len(bundle.CSS) + len(bundle.JavaScript) + 2048)

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<style>\n")
	b.WriteString(baselineCSS)
	b.WriteString("\n")
	b.WriteString(bundle.CSS)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(bundle.HTML)
	b.WriteString("\n<script>\n")
	b.WriteString(instrumentation)
	b.WriteString("\n</script>\n<script>\n")
	b.WriteString("try {\n")
	b.WriteString(bundle.JavaScript)
	b.WriteString("\n} catch (err) { console.error(err && err.message ? err.message : String(err)); }\n")
	b.WriteString("</script>\n</body>\n</html>\n")

	return b.String()
}
