package sessync

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher is a compiled matcher expression. Expressions are sequences of
// tokens: `{globs}` (file-name globs), `{{globs}}` (path globs),
// `/re/[i]` (file-name regexp), `//re//[i]` (path regexp), `<mimes>`
// (media-type globs) and `?expr?` (a predicate handed to the configured
// engine). An entry matches when every token matches. The empty expression
// compiles to a matcher that matches nothing.
type Matcher interface {
	Match(path string) bool
	Expr() string
}

// MatcherCompiler turns matcher expressions into Matchers.
type MatcherCompiler interface {
	Compile(expr string) (Matcher, error)
}

// PredicateInput carries the bindings offered to predicate expressions.
type PredicateInput struct {
	Name string
	Path string
	Ext  string
}

// Predicate is a compiled `?expr?` token.
type Predicate interface {
	Test(input PredicateInput) (bool, error)
}

// PredicateEngine compiles predicate expressions.
type PredicateEngine interface {
	Compile(expr string) (Predicate, error)
}

type matcherCompiler struct {
	engine PredicateEngine
}

// NewMatcherCompiler constructs the default compiler. engine may be nil,
// in which case `?expr?` tokens fail to compile.
func NewMatcherCompiler(engine PredicateEngine) MatcherCompiler {
	return &matcherCompiler{engine: engine}
}

type matcherToken interface {
	match(input PredicateInput) bool
}

type compiledMatcher struct {
	expr   string
	tokens []matcherToken
}

func (m *compiledMatcher) Expr() string {
	return m.expr
}

func (m *compiledMatcher) Match(target string) bool {
	if len(m.tokens) == 0 {
		return false
	}
	input := PredicateInput{
		Name: filepath.Base(target),
		Path: target,
		Ext:  strings.TrimPrefix(filepath.Ext(target), "."),
	}
	for _, token := range m.tokens {
		if !token.match(input) {
			return false
		}
	}
	return true
}

func (c *matcherCompiler) Compile(expr string) (Matcher, error) {
	matcher := &compiledMatcher{expr: expr}

	rest := strings.TrimSpace(expr)
	for rest != "" {
		token, remainder, err := c.nextToken(rest)
		if err != nil {
			return nil, wrapStateError("compile-matcher", "", fmt.Errorf("%q: %w", expr, err))
		}
		matcher.tokens = append(matcher.tokens, token)
		rest = strings.TrimSpace(remainder)
	}
	return matcher, nil
}

func (c *matcherCompiler) nextToken(s string) (matcherToken, string, error) {
	switch {
	case strings.HasPrefix(s, "{{"):
		body, rest, err := cutDelimited(s, "{{", "}}")
		if err != nil {
			return nil, "", err
		}
		return globToken{patterns: splitList(body), full: true}, rest, nil
	case strings.HasPrefix(s, "{"):
		body, rest, err := cutDelimited(s, "{", "}")
		if err != nil {
			return nil, "", err
		}
		return globToken{patterns: splitList(body)}, rest, nil
	case strings.HasPrefix(s, "<"):
		body, rest, err := cutDelimited(s, "<", ">")
		if err != nil {
			return nil, "", err
		}
		return mimeToken{patterns: splitList(body)}, rest, nil
	case strings.HasPrefix(s, "//"):
		return cutRegexp(s, "//")
	case strings.HasPrefix(s, "/"):
		return cutRegexp(s, "/")
	case strings.HasPrefix(s, "?"):
		body, rest, err := cutDelimited(s, "?", "?")
		if err != nil {
			return nil, "", err
		}
		if c.engine == nil {
			return nil, "", fmt.Errorf("no predicate engine configured")
		}
		predicate, err := c.engine.Compile(body)
		if err != nil {
			return nil, "", err
		}
		return predicateToken{predicate: predicate}, rest, nil
	default:
		return nil, "", fmt.Errorf("unexpected token at %q", s)
	}
}

func cutDelimited(s, open, close string) (body, rest string, err error) {
	s = s[len(open):]
	end := strings.Index(s, close)
	if end < 0 {
		return "", "", fmt.Errorf("missing closing %q", close)
	}
	return s[:end], s[end+len(close):], nil
}

func cutRegexp(s, delim string) (matcherToken, string, error) {
	body, rest, err := cutDelimited(s, delim, delim)
	if err != nil {
		return nil, "", err
	}
	flags := ""
	for rest != "" && rest[0] == 'i' {
		flags = "i"
		rest = rest[1:]
	}
	pattern := body
	if flags == "i" {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, "", err
	}
	return regexpToken{re: re, full: delim == "//"}, rest, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

type globToken struct {
	patterns []string
	full     bool
}

func (t globToken) match(input PredicateInput) bool {
	target := input.Name
	if t.full {
		target = input.Path
	}
	for _, pattern := range t.patterns {
		if ok, err := path.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

type regexpToken struct {
	re   *regexp.Regexp
	full bool
}

func (t regexpToken) match(input PredicateInput) bool {
	target := input.Name
	if t.full {
		target = input.Path
	}
	return t.re.MatchString(target)
}

type mimeToken struct {
	patterns []string
}

func (t mimeToken) match(input PredicateInput) bool {
	mediaType := mime.TypeByExtension("." + input.Ext)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if mediaType == "" {
		return false
	}
	for _, pattern := range t.patterns {
		if ok, err := path.Match(pattern, mediaType); err == nil && ok {
			return true
		}
	}
	return false
}

type predicateToken struct {
	predicate Predicate
}

func (t predicateToken) match(input PredicateInput) bool {
	ok, err := t.predicate.Test(input)
	return err == nil && ok
}
