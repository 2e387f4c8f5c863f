// Package resolver turns configuration specs into concrete values. A spec is a
// literal, a reference to an environment variable, or a function that may or
// may not look at the caller-supplied scope. Nothing is cached: every Resolve
// call reads the environment again.
package resolver

import (
	"os"
	"strconv"
)

type kind int

const (
	kindUnset kind = iota
	kindLiteral
	kindEnv
	kindScopeless
	kindScoped
	kindOverride
)

// Value is a tagged spec for a value of type T.
type Value[T any] struct {
	kind      kind
	literal   T
	env       string
	def       T
	parse     func(string) (T, bool)
	scopeless func() T
	scoped    func(scope any) T
	extract   func(scope any) (T, bool)
	fallback  *Value[T]
}

// Literal returns a spec that always resolves to v.
func Literal[T any](v T) Value[T] {
	return Value[T]{kind: kindLiteral, literal: v}
}

// FromEnv returns a spec that reads the named environment variable. An unset
// variable resolves to def, which may itself be empty.
func FromEnv[T ~string](name string, def T) Value[T] {
	return Value[T]{
		kind:  kindEnv,
		env:   name,
		def:   def,
		parse: func(s string) (T, bool) { return T(s), true },
	}
}

// FromEnvBool is FromEnv for boolean flags. Unparseable values fall back to def.
func FromEnvBool(name string, def bool) Value[bool] {
	return Value[bool]{
		kind: kindEnv,
		env:  name,
		def:  def,
		parse: func(s string) (bool, bool) {
			b, err := strconv.ParseBool(s)
			return b, err == nil
		},
	}
}

// Scopeless wraps a function that ignores the scope.
func Scopeless[T any](fn func() T) Value[T] {
	return Value[T]{kind: kindScopeless, scopeless: fn}
}

// Scoped wraps a function that receives the scope.
func Scoped[T any](fn func(scope any) T) Value[T] {
	return Value[T]{kind: kindScoped, scoped: fn}
}

// WithScopeOverride builds a spec that asks extract for an explicit value in
// the scope first and resolves fallback when there is none. An unset fallback
// stays open: Or fills it instead of replacing the override.
func WithScopeOverride[T any](extract func(scope any) (T, bool), fallback Value[T]) Value[T] {
	return Value[T]{kind: kindOverride, extract: extract, fallback: &fallback}
}

// IsZero reports whether v was never set.
func (v Value[T]) IsZero() bool {
	return v.kind == kindUnset
}

// Or returns v unless it is unset, in which case it returns other. A scope
// override passes other down to its own fallback.
func (v Value[T]) Or(other Value[T]) Value[T] {
	switch v.kind {
	case kindUnset:
		return other
	case kindOverride:
		fallback := v.fallback.Or(other)
		v.fallback = &fallback
		return v
	default:
		return v
	}
}

// Resolve produces the concrete value for scope. Scopeless specs ignore scope;
// unset specs resolve to the zero value of T.
func (v Value[T]) Resolve(scope any) T {
	switch v.kind {
	case kindLiteral:
		return v.literal
	case kindEnv:
		raw, ok := os.LookupEnv(v.env)
		if !ok || raw == "" {
			return v.def
		}
		if parsed, ok := v.parse(raw); ok {
			return parsed
		}
		return v.def
	case kindScopeless:
		return v.scopeless()
	case kindScoped:
		return v.scoped(scope)
	case kindOverride:
		if val, ok := v.extract(scope); ok {
			return val
		}
		return v.fallback.Resolve(scope)
	default:
		var zero T
		return zero
	}
}
