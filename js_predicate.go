//go:build js_eval

package sessync

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEngine struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSPredicateEngine constructs a PredicateEngine backed by goja.
func NewJSPredicateEngine(opts ...JSEngineOption) PredicateEngine {
	cfg := applyJSEngineOptions(opts)
	return &jsEngine{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEngine) Compile(expression string) (Predicate, error) {
	if expression == "" {
		return nil, fmt.Errorf("sessync: predicate must not be empty")
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsPredicate{
		engine:     e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEngine) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEngine) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsPredicate struct {
	engine     *jsEngine
	expression string
	program    *goja.Program
}

func (p *jsPredicate) Test(input PredicateInput) (bool, error) {
	vm := goja.New()
	vm.Set("name", input.Name)
	vm.Set("path", input.Path)
	vm.Set("ext", input.Ext)
	if p.engine.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return p.engine.registry.Call(name, arguments...)
		})
		for _, name := range p.engine.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return p.engine.registry.Call(fn, arguments...)
			})
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return false, fmt.Errorf("sessync: predicate %q: %w", p.expression, err)
	}
	return truthy(value.Export()), nil
}

func jsEngineAvailable() bool {
	return true
}
