// Package attachment is the orchestration core: it stages sources, runs each
// declared version through the transform pipeline, computes storage keys and
// drives the storage backend for store, url and delete.
package attachment

import (
	"fmt"
	"sort"
	"time"

	"attachr/internal/domain"
	"attachr/internal/resolver"
	"attachr/internal/transform"
)

// TransformFunc declares the transform of a version. During URL building and
// deletes the file carries only its name, so implementations must not depend
// on the content.
type TransformFunc func(version string, file *StagedFile, scope any) transform.Spec

// HeadersFunc returns the HTTP headers stored with a version.
type HeadersFunc func(version string, file *StagedFile, scope any) map[string]string

// ACLFunc returns a per-version access policy. An empty result falls back to
// the definition's ACL.
type ACLFunc func(version string, scope any) domain.ACL

// FilenameFunc overrides the version-qualified name (without extension).
type FilenameFunc func(version, name string, scope any) string

// Definition is the static configuration of one attachment type. It must not
// be mutated once handed to an Attacher.
type Definition struct {
	Name     string
	Versions []string

	Transform  TransformFunc
	ACL        resolver.Value[domain.ACL]
	ACLFor     ACLFunc
	StorageDir resolver.Value[string]
	Bucket     resolver.Value[string]
	AssetHost  resolver.Value[string]
	// VirtualHost selects bucket-as-subdomain URLs over path-style ones.
	VirtualHost resolver.Value[bool]
	Headers     HeadersFunc
	Filename    FilenameFunc
	Validate    func(file *StagedFile) bool
	DefaultURL  func(version string, scope any) string

	// RandomizeBasename stores under a fresh UUID instead of the uploaded name.
	RandomizeBasename bool
	SignedURLTTL      time.Duration
}

// Defaults are layered under every definition's unset fields.
type Defaults struct {
	ACL          resolver.Value[domain.ACL]
	Bucket       resolver.Value[string]
	AssetHost    resolver.Value[string]
	VirtualHost  resolver.Value[bool]
	SignedURLTTL time.Duration
}

// WithDefaults returns a copy of d with unset fields taken from defaults.
func (d Definition) WithDefaults(defaults Defaults) *Definition {
	d.ACL = d.ACL.Or(defaults.ACL).Or(resolver.Literal(domain.ACLPrivate))
	d.Bucket = d.Bucket.Or(defaults.Bucket)
	d.AssetHost = d.AssetHost.Or(defaults.AssetHost)
	d.VirtualHost = d.VirtualHost.Or(defaults.VirtualHost)
	if d.SignedURLTTL <= 0 {
		d.SignedURLTTL = defaults.SignedURLTTL
	}
	d.Versions = append([]string(nil), d.Versions...)
	return &d
}

// VersionList returns the declared versions, or the implicit original.
func (d *Definition) VersionList() []string {
	if len(d.Versions) == 0 {
		return []string{domain.VersionOriginal}
	}
	return d.Versions
}

// HasVersion reports whether version is one of the definition's versions.
func (d *Definition) HasVersion(version string) bool {
	for _, v := range d.VersionList() {
		if v == version {
			return true
		}
	}
	return false
}

// TransformSpec evaluates the declared transform for version. The implicit
// original version is always the identity.
func (d *Definition) TransformSpec(version string, file *StagedFile, scope any) transform.Spec {
	if d.Transform == nil || len(d.Versions) == 0 {
		return transform.Identity()
	}
	return d.Transform(version, file, scope)
}

func (d *Definition) aclFor(version string, scope any) domain.ACL {
	if d.ACLFor != nil {
		if acl := d.ACLFor(version, scope); acl != "" {
			return acl
		}
	}
	return d.ACL.Resolve(scope)
}

func (d *Definition) headersFor(version string, file *StagedFile, scope any) map[string]string {
	if d.Headers == nil {
		return nil
	}
	return d.Headers(version, file, scope)
}

// Registry holds the definitions known to the process, keyed by name.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry builds a registry, rejecting duplicate or empty names.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("attachment definition without a name")
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate attachment definition %q", d.Name)
		}
		r.defs[d.Name] = d
	}
	return r, nil
}

// Get returns the named definition or domain.ErrUnknownDefinition.
func (r *Registry) Get(name string) (*Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, domain.ErrUnknownDefinition
	}
	return d, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
