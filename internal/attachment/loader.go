package attachment

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"attachr/internal/domain"
	"attachr/internal/resolver"
	"attachr/internal/transform"
)

// definitionsFile is the on-disk shape of the definitions file.
type definitionsFile struct {
	Definitions []definitionEntry `yaml:"definitions"`
}

type definitionEntry struct {
	Name              string                       `yaml:"name"`
	Versions          []string                     `yaml:"versions"`
	Transforms        map[string]transformEntry    `yaml:"transforms"`
	ACL               stringSpec                   `yaml:"acl"`
	VersionACL        map[string]domain.ACL        `yaml:"version_acl"`
	StorageDir        stringSpec                   `yaml:"storage_dir"`
	Bucket            stringSpec                   `yaml:"bucket"`
	AssetHost         stringSpec                   `yaml:"asset_host"`
	VirtualHost       boolSpec                     `yaml:"virtual_host"`
	Headers           map[string]string            `yaml:"headers"`
	VersionHeaders    map[string]map[string]string `yaml:"version_headers"`
	AllowedExtensions []string                     `yaml:"allowed_extensions"`
	RandomizeBasename bool                         `yaml:"randomize_basename"`
	DefaultURL        string                       `yaml:"default_url"`
	SignedURLTTL      time.Duration                `yaml:"signed_url_ttl"`
}

type transformEntry struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Ext     string   `yaml:"ext"`
	Skip    bool     `yaml:"skip"`
}

// stringSpec accepts either a scalar literal or a mapping
// {value, env, default, scope_key}.
type stringSpec struct {
	Value    string `yaml:"value"`
	Env      string `yaml:"env"`
	Default  string `yaml:"default"`
	ScopeKey string `yaml:"scope_key"`
	set      bool
}

func (s *stringSpec) UnmarshalYAML(node *yaml.Node) error {
	s.set = true
	if node.Kind == yaml.ScalarNode {
		s.Value = node.Value
		return nil
	}
	type plain stringSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = stringSpec(p)
	s.set = true
	return nil
}

// boolSpec accepts a scalar boolean or a mapping {env, default}.
type boolSpec struct {
	Value   bool   `yaml:"value"`
	Env     string `yaml:"env"`
	Default bool   `yaml:"default"`
	set     bool
}

func (b *boolSpec) UnmarshalYAML(node *yaml.Node) error {
	b.set = true
	if node.Kind == yaml.ScalarNode {
		v, err := strconv.ParseBool(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %q is not a boolean", node.Line, node.Value)
		}
		b.Value = v
		return nil
	}
	type plain boolSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*b = boolSpec(p)
	b.set = true
	return nil
}

// LoadRegistry reads the definitions file at path and layers defaults under
// every definition.
func LoadRegistry(path string, defaults Defaults) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	log.Printf("attachment.LoadRegistry: loading definitions from %s", path)

	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	withDefaults := make([]*Definition, len(defs))
	for i, d := range defs {
		withDefaults[i] = d.WithDefaults(defaults)
	}
	return NewRegistry(withDefaults...)
}

// ParseDefinitions decodes a definitions document. Unknown fields are
// rejected.
func ParseDefinitions(data []byte) ([]*Definition, error) {
	var file definitionsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}

	defs := make([]*Definition, 0, len(file.Definitions))
	for _, entry := range file.Definitions {
		def, err := entry.build()
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", entry.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (e definitionEntry) build() (*Definition, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	def := &Definition{
		Name:              e.Name,
		Versions:          e.Versions,
		StorageDir:        e.StorageDir.scopedValue(),
		Bucket:            e.Bucket.value(),
		AssetHost:         e.AssetHost.value(),
		VirtualHost:       e.VirtualHost.value(),
		RandomizeBasename: e.RandomizeBasename,
		SignedURLTTL:      e.SignedURLTTL,
	}

	for version := range e.Transforms {
		if !def.HasVersion(version) {
			return nil, fmt.Errorf("transform for undeclared version %q", version)
		}
	}
	if len(e.Transforms) > 0 {
		specs := make(map[string]transform.Spec, len(e.Transforms))
		for version, t := range e.Transforms {
			spec, err := t.spec()
			if err != nil {
				return nil, fmt.Errorf("version %q: %w", version, err)
			}
			specs[version] = spec
		}
		def.Transform = func(version string, _ *StagedFile, _ any) transform.Spec {
			if spec, ok := specs[version]; ok {
				return spec
			}
			return transform.Identity()
		}
	}

	acl, err := e.aclValue()
	if err != nil {
		return nil, err
	}
	def.ACL = acl
	for version, a := range e.VersionACL {
		if _, ok := domain.ValidACLs[a]; !ok {
			return nil, fmt.Errorf("version %q: unknown acl %q", version, a)
		}
	}
	if len(e.VersionACL) > 0 {
		versionACL := e.VersionACL
		def.ACLFor = func(version string, _ any) domain.ACL { return versionACL[version] }
	}

	if len(e.Headers) > 0 || len(e.VersionHeaders) > 0 {
		common, perVersion := e.Headers, e.VersionHeaders
		def.Headers = func(version string, _ *StagedFile, _ any) map[string]string {
			out := make(map[string]string, len(common)+len(perVersion[version]))
			for k, v := range common {
				out[k] = v
			}
			for k, v := range perVersion[version] {
				out[k] = v
			}
			return out
		}
	}

	if len(e.AllowedExtensions) > 0 {
		allowed := make(map[string]bool, len(e.AllowedExtensions))
		for _, ext := range e.AllowedExtensions {
			allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
		def.Validate = func(file *StagedFile) bool {
			return allowed[strings.ToLower(file.Extension())]
		}
	}

	if e.DefaultURL != "" {
		pattern := e.DefaultURL
		def.DefaultURL = func(version string, scope any) string {
			return expandScope(strings.ReplaceAll(pattern, "{version}", version), scope)
		}
	}
	return def, nil
}

func (t transformEntry) spec() (transform.Spec, error) {
	if t.Skip {
		if t.Command != "" {
			return transform.Spec{}, fmt.Errorf("skip and command are mutually exclusive")
		}
		return transform.Skip(), nil
	}
	if t.Command == "" {
		return transform.Identity(), nil
	}
	return transform.Command(t.Command, t.Args, t.Ext), nil
}

func (e definitionEntry) aclValue() (resolver.Value[domain.ACL], error) {
	s := e.ACL
	if !s.set {
		return resolver.Value[domain.ACL]{}, nil
	}
	if s.Env != "" {
		return resolver.FromEnv(s.Env, domain.ACL(s.Default)), nil
	}
	acl := domain.ACL(s.Value)
	if _, ok := domain.ValidACLs[acl]; !ok {
		return resolver.Value[domain.ACL]{}, fmt.Errorf("unknown acl %q", s.Value)
	}
	return resolver.Literal(acl), nil
}

// value converts s into a resolver value. scope_key reads the scope
// first and falls back to the literal or env spec.
func (s stringSpec) value() resolver.Value[string] {
	if !s.set {
		return resolver.Value[string]{}
	}
	var base resolver.Value[string]
	switch {
	case s.Env != "":
		base = resolver.FromEnv(s.Env, s.Default)
	case s.Value != "":
		base = resolver.Literal(s.Value)
	}
	if s.ScopeKey == "" {
		return base
	}
	key := s.ScopeKey
	return resolver.WithScopeOverride(func(scope any) (string, bool) {
		return scopeValue(scope, key)
	}, base)
}

// scopedValue is value with {field} placeholders expanded from the scope.
func (s stringSpec) scopedValue() resolver.Value[string] {
	v := s.value()
	if v.IsZero() {
		return v
	}
	return resolver.Scoped(func(scope any) string {
		return expandScope(v.Resolve(scope), scope)
	})
}

func (b boolSpec) value() resolver.Value[bool] {
	if !b.set {
		return resolver.Value[bool]{}
	}
	if b.Env != "" {
		return resolver.FromEnvBool(b.Env, b.Default)
	}
	return resolver.Literal(b.Value)
}
