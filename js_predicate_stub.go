//go:build !js_eval

package sessync

// NewJSPredicateEngine is unavailable without the js_eval build tag.
func NewJSPredicateEngine(opts ...JSEngineOption) PredicateEngine {
	_ = applyJSEngineOptions(opts)
	return nil
}

func jsEngineAvailable() bool {
	return false
}
