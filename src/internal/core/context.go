// FILE: logweave/src/internal/core/context.go
package core

import (
	"context"
	"maps"
)

type diagContextKey struct{}

// WithContext returns a child context whose diagnostic map additionally holds key=value.
// The parent's map is never modified, so maps reachable from a context are read-only.
func WithContext(ctx context.Context, key, value string) context.Context {
	parent := ContextMap(ctx)
	m := make(map[string]string, len(parent)+1)
	maps.Copy(m, parent)
	m[key] = value
	return context.WithValue(ctx, diagContextKey{}, m)
}

// WithoutContext returns a child context with key removed from the diagnostic map
func WithoutContext(ctx context.Context, key string) context.Context {
	parent := ContextMap(ctx)
	if _, ok := parent[key]; !ok {
		return ctx
	}
	m := maps.Clone(parent)
	delete(m, key)
	return context.WithValue(ctx, diagContextKey{}, m)
}

// ContextMap returns the diagnostic map carried by ctx. Callers must not modify it.
func ContextMap(ctx context.Context) map[string]string {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(diagContextKey{}).(map[string]string)
	return m
}
