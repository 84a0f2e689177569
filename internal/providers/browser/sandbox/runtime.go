package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrClosed is returned by a closed runtime.
var ErrClosed = errors.New("sandbox runtime is closed")

// Runtime wraps a goja VM with a minimal window/document pair.
type Runtime struct {
	config Config
	mu     sync.Mutex
	closed bool
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Runtime{config: config}, nil
}

// session is the per-run state: a fresh VM so runs never share globals.
type session struct {
	vm        *goja.Runtime
	page      Page
	listeners []goja.Callable
	messages  []Message
}

// Click loads script into page, then dispatches one click on target
// (nil clicks on a non-link element) to every capture-phase listener.
func (r *Runtime) Click(ctx context.Context, script string, page Page, target *Element) (*Result, error) {
	return r.run(ctx, page, func(s *session) (*Result, error) {
		if _, err := s.vm.RunString(script); err != nil {
			return nil, fmt.Errorf("load script: %w", err)
		}
		return s.dispatch(target)
	})
}

// Load runs script loads times without clicking and reports how many click
// listeners ended up registered.
func (r *Runtime) Load(ctx context.Context, script string, page Page, loads int) (int, error) {
	res, err := r.run(ctx, page, func(s *session) (*Result, error) {
		for i := 0; i < loads; i++ {
			if _, err := s.vm.RunString(script); err != nil {
				return nil, fmt.Errorf("load script: %w", err)
			}
		}
		return &Result{Listeners: len(s.listeners)}, nil
	})
	if err != nil {
		return 0, err
	}
	return res.Listeners, nil
}

func (r *Runtime) run(ctx context.Context, page Page, fn func(*session) (*Result, error)) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	s := &session{vm: goja.New(), page: page}
	if err := s.setupGlobals(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-timer.C:
			s.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			s.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	res, err := fn(s)
	if err != nil {
		return nil, err
	}
	res.Messages = s.messages
	res.Duration = time.Since(start)
	return res, nil
}

// setupGlobals exposes window, document and location. Everything else a
// page might reach for is absent.
func (s *session) setupGlobals() error {
	vm := s.vm
	vm.Set("require", goja.Undefined())

	location := vm.NewObject()
	_ = location.Set("href", s.page.URL)

	parent := vm.NewObject()
	_ = parent.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		msg := Message{TargetOrigin: call.Argument(1).String()}
		if data, ok := call.Argument(0).Export().(map[string]interface{}); ok {
			msg.Data = data
		}
		s.messages = append(s.messages, msg)
		return goja.Undefined()
	})

	document := vm.NewObject()
	if s.page.BaseURI != "" {
		_ = document.Set("baseURI", s.page.BaseURI)
	}
	_ = document.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).String() != "click" || !call.Argument(2).ToBoolean() {
			return goja.Undefined()
		}
		if fn, ok := goja.AssertFunction(call.Argument(1)); ok {
			s.listeners = append(s.listeners, fn)
		}
		return goja.Undefined()
	})

	global := vm.GlobalObject()
	_ = global.Set("location", location)
	_ = global.Set("parent", parent)
	_ = global.Set("document", document)
	return vm.Set("window", global)
}

func (s *session) dispatch(target *Element) (*Result, error) {
	res := &Result{Listeners: len(s.listeners)}

	event := s.vm.NewObject()
	_ = event.Set("target", s.elementValue(target))
	_ = event.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		res.DefaultPrevented = true
		return goja.Undefined()
	})

	for _, fn := range s.listeners {
		if _, err := fn(goja.Undefined(), event); err != nil {
			return nil, fmt.Errorf("click listener: %w", err)
		}
	}
	return res, nil
}

// elementValue exposes an element with tagName, href, hash and closest().
func (s *session) elementValue(el *Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	obj := s.vm.NewObject()
	_ = obj.Set("tagName", el.TagName)

	base := s.page.BaseURI
	if base == "" {
		base = s.page.URL
	}
	if raw, ok := el.Attributes["href"]; ok {
		href, hash := resolveHref(base, raw)
		_ = obj.Set("href", href)
		_ = obj.Set("hash", hash)
	}
	_ = obj.Set("getAttribute", func(name string) string {
		return el.GetAttribute(name)
	})
	_ = obj.Set("closest", func(call goja.FunctionCall) goja.Value {
		return s.elementValue(el.Closest(call.Argument(0).String()))
	})
	return obj
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
