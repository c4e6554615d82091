// Package mediaurl mints short-lived opaque URLs for stored blobs.
//
// A handle lives only in process memory and only until the Scope that
// acquired it is released, so a handle can never outlive the view that
// displayed it or be persisted across restarts.
package mediaurl

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultPrefix is the path under which handles are served.
const DefaultPrefix = "/media/"

// Target is what a handle points at.
type Target struct {
	Key      string
	MIMEType string
}

// Registry maps handle tokens to blob keys.
type Registry struct {
	prefix string

	mu      sync.RWMutex
	entries map[string]Target
}

// NewRegistry returns an empty registry that formats URLs under prefix.
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Registry{prefix: prefix, entries: make(map[string]Target)}
}

// Prefix returns the URL prefix.
func (r *Registry) Prefix() string { return r.prefix }

// NewScope opens a scope. Every handle acquired through it is revoked by
// Release.
func (r *Registry) NewScope() *Scope {
	return &Scope{reg: r}
}

// Resolve accepts either a bare token or a full handle URL.
func (r *Registry) Resolve(handle string) (Target, bool) {
	token := strings.TrimPrefix(handle, r.prefix)
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.entries[token]
	return t, ok
}

// Owns reports whether src is formatted as one of this registry's handles.
func (r *Registry) Owns(src string) bool {
	return strings.HasPrefix(src, r.prefix)
}

// Forget revokes every live handle pointing at one of keys.
func (r *Registry) Forget(keys ...string) {
	if len(keys) == 0 {
		return
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, t := range r.entries {
		if drop[t.Key] {
			delete(r.entries, token)
		}
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) add(t Target) string {
	token := uuid.NewString()
	r.mu.Lock()
	r.entries[token] = t
	r.mu.Unlock()
	return token
}

func (r *Registry) remove(tokens []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range tokens {
		delete(r.entries, token)
	}
}

// Scope groups the handles of one rendering of a track list.
type Scope struct {
	reg *Registry

	mu       sync.Mutex
	tokens   []string
	released bool
}

// Acquire mints a handle URL for key. Acquiring on a released scope returns
// an empty string.
func (s *Scope) Acquire(key, mimeType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ""
	}
	token := s.reg.add(Target{Key: key, MIMEType: mimeType})
	s.tokens = append(s.tokens, token)
	return s.reg.prefix + token
}

// Release revokes every handle minted by this scope. It is idempotent.
func (s *Scope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.reg.remove(s.tokens)
	s.tokens = nil
}

// Views keeps one live scope per view id. Opening a view's scope releases
// the one it replaces.
type Views struct {
	reg *Registry

	mu     sync.Mutex
	scopes map[string]*Scope
}

// NewViews returns an empty view table over reg.
func NewViews(reg *Registry) *Views {
	return &Views{reg: reg, scopes: make(map[string]*Scope)}
}

// Renew releases the previous scope of view and returns a fresh one.
func (v *Views) Renew(view string) *Scope {
	next := v.reg.NewScope()
	v.mu.Lock()
	prev := v.scopes[view]
	v.scopes[view] = next
	v.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
	return next
}

// Current returns the live scope of view, opening one if needed.
func (v *Views) Current(view string) *Scope {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.scopes[view]
	if !ok {
		s = v.reg.NewScope()
		v.scopes[view] = s
	}
	return s
}

// Close releases the scope of view.
func (v *Views) Close(view string) {
	v.mu.Lock()
	prev := v.scopes[view]
	delete(v.scopes, view)
	v.mu.Unlock()
	if prev != nil {
		prev.Release()
	}
}

// CloseAll releases every scope.
func (v *Views) CloseAll() {
	v.mu.Lock()
	scopes := v.scopes
	v.scopes = make(map[string]*Scope)
	v.mu.Unlock()
	for _, s := range scopes {
		s.Release()
	}
}
