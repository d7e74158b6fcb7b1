// Package sandbox evaluates untrusted user JavaScript in an isolated goja
// runtime. Each render cycle gets a brand-new VM: no timers, listeners, or
// globals survive from one evaluation to the next, which is the whole
// cleanliness guarantee of the preview's full-reload model.
package sandbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/dop251/goja"

	"github.com/penlabhq/penlab/internal/shared/types"
)

// prettyJSON renders exported objects with sorted keys so console output for
// the same value is byte-stable across runs.
var prettyJSON = sonic.Config{SortMapKeys: true}.Froze()

// Runtime wraps a goja VM with console capture and execution limits.
type Runtime struct {
	vm     *goja.Runtime
	config Config

	console []Entry
	emit    func(Entry)
}

// New creates a sandboxed runtime. The emit callback, when non-nil, receives
// each console entry at the moment the sandboxed call happens, preserving
// in-cycle ordering for live relays.
func New(config Config, emit func(Entry)) (*Runtime, error) {
	vm := goja.New()
	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	r := &Runtime{
		vm:     vm,
		config: config,
		emit:   emit,
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute evaluates the script against the document proxy. Script failures
// (a synchronous throw, a timeout interrupt) land in Result.Err and are
// never fatal: the DOM stays rendered and any console output emitted before
// the failure is retained.
func (r *Runtime) Execute(ctx context.Context, script string, dom *DOM) *Result {
	start := time.Now()
	r.console = nil

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	if dom != nil {
		r.injectDocument(dom)
	}

	_, err := r.vm.RunString(script)

	result := &Result{
		Console:  append([]Entry{}, r.console...),
		Duration: time.Since(start),
	}
	if err != nil {
		result.Err = errors.New(describeError(err))
	}
	return result
}

// setupGlobals strips host-reaching globals and installs the console shim.
func (r *Runtime) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// window aliases the sandbox's own global object, so window.parent is
	// undefined: there is nothing above this context to reach.
	r.vm.Set("window", r.vm.GlobalObject())

	console := r.vm.NewObject()
	console.Set("log", r.makeConsoleFunc(types.LevelLog))
	console.Set("warn", r.makeConsoleFunc(types.LevelWarn))
	console.Set("error", r.makeConsoleFunc(types.LevelError))
	console.Set("info", r.makeConsoleFunc(types.LevelInfo))
	r.vm.Set("console", console)

	// Timers are no-ops: a render cycle is one synchronous evaluation, and
	// deferred work would outlive the context it belongs to.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	r.vm.Set("setTimeout", noop)
	r.vm.Set("setInterval", noop)

	return nil
}

// makeConsoleFunc builds one console method. Arguments stringify as: strings
// verbatim, objects and arrays as two-space-indented JSON with sorted keys,
// everything else via its natural string form; parts join with single
// spaces, mirroring how a real console displays multi-argument calls.
func (r *Runtime) makeConsoleFunc(level types.LogLevel) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, stringify(arg))
		}

		entry := Entry{Level: level, Message: strings.Join(parts, " ")}
		r.console = append(r.console, entry)
		if r.emit != nil {
			r.emit(entry)
		}
		return goja.Undefined()
	}
}

// injectDocument exposes the document proxy to the sandbox.
func (r *Runtime) injectDocument(dom *DOM) {
	document := r.vm.NewObject()

	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return r.selectOne(dom, selectorArg(call))
	})
	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := selectorArg(call)
		if id == "" {
			return goja.Null()
		}
		return r.selectOne(dom, "#"+id)
	})
	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.selectAll(dom, selectorArg(call))
	})
	document.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		name := selectorArg(call)
		if name == "" {
			return r.vm.ToValue([]interface{}{})
		}
		return r.selectAll(dom, "."+name)
	})
	document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return r.selectAll(dom, selectorArg(call))
	})
	document.Set("title", dom.Query("title").Text())

	r.vm.Set("document", document)
}

func (r *Runtime) selectOne(dom *DOM, selector string) goja.Value {
	if selector == "" {
		return goja.Null()
	}
	proxy := dom.elementProxy(dom.Query(selector))
	if proxy == nil {
		return goja.Null()
	}
	return r.vm.ToValue(proxy)
}

func (r *Runtime) selectAll(dom *DOM, selector string) goja.Value {
	proxies := []interface{}{}
	if selector != "" {
		dom.Query(selector).Each(func(_ int, s *goquery.Selection) {
			if proxy := dom.elementProxy(s); proxy != nil {
				proxies = append(proxies, proxy)
			}
		})
	}
	return r.vm.ToValue(proxies)
}

func selectorArg(call goja.FunctionCall) string {
	if len(call.Arguments) == 0 {
		return ""
	}
	return call.Arguments[0].String()
}

// stringify converts one console argument to its display form.
func stringify(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	switch v.Export().(type) {
	case map[string]interface{}, []interface{}:
		if data, err := prettyJSON.MarshalIndent(v.Export(), "", "  "); err == nil {
			return string(data)
		}
	}
	return v.String()
}

// describeError flattens a goja failure into a single relayable message:
// the thrown value plus the first stack frame (source position) when the
// engine provides one.
func describeError(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		lines := strings.Split(ex.String(), "\n")
		msg := strings.TrimSpace(lines[0])
		if len(lines) > 1 {
			if frame := strings.TrimSpace(lines[1]); frame != "" {
				msg += " " + frame
			}
		}
		return msg
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return "script interrupted: " + interrupted.String()
	}
	return err.Error()
}
