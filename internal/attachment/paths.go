package attachment

import (
	"fmt"
	"path"
	"strings"

	"attachr/internal/domain"
)

// StorageDir resolves the definition's directory for scope, without leading
// or trailing slashes.
func StorageDir(def *Definition, scope any) string {
	dir := strings.Trim(def.StorageDir.Resolve(scope), "/")
	if dir == "" {
		return ""
	}
	return strings.Trim(path.Clean(dir), "/")
}

// VersionFilename returns the stored filename of version for basename, with
// ext replacing the basename's own extension.
func VersionFilename(def *Definition, version, basename, ext string, scope any) string {
	name := strings.TrimSuffix(basename, path.Ext(basename))
	switch {
	case def.Filename != nil:
		name = def.Filename(version, name, scope)
	case version != domain.VersionOriginal && len(def.VersionList()) > 1:
		name = name + "_" + version
	}
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// KeyFor returns the object key of version. It reads no state besides its
// arguments and the definition.
func KeyFor(def *Definition, version, basename, ext string, scope any) string {
	file := VersionFilename(def, version, basename, ext, scope)
	dir := StorageDir(def, scope)
	if dir == "" {
		return file
	}
	return dir + "/" + file
}

// BucketFor resolves the bucket. An empty result is only an error once a
// backend actually needs it.
func BucketFor(def *Definition, scope any) string {
	return def.Bucket.Resolve(scope)
}

// AssetHostFor resolves the asset host. "false" disables it, as does empty.
func AssetHostFor(def *Definition, scope any) string {
	host := strings.TrimSpace(def.AssetHost.Resolve(scope))
	if host == "false" {
		return ""
	}
	return strings.TrimRight(host, "/")
}

// Locate computes where version of basename lives, evaluating the transform
// without running it. skip is true when the version is never stored.
func Locate(def *Definition, version, basename string, scope any) (bucket, key string, skip bool) {
	file := nameOnly(basename)
	spec := def.TransformSpec(version, file, scope)
	if spec.IsSkip() {
		return "", "", true
	}
	return BucketFor(def, scope), KeyFor(def, version, basename, spec.Extension(file.Extension()), scope), false
}

// scopeValue extracts key from a scope map or a ScopeValuer.
func scopeValue(scope any, key string) (string, bool) {
	switch s := scope.(type) {
	case nil:
		return "", false
	case ScopeValuer:
		return s.ScopeValue(key)
	case map[string]string:
		v, ok := s[key]
		return v, ok && v != ""
	case map[string]any:
		v, ok := s[key]
		if !ok || v == nil {
			return "", false
		}
		str := fmt.Sprint(v)
		return str, str != ""
	default:
		return "", false
	}
}

// ScopeValuer lets a typed scope expose values to definitions loaded from
// configuration files.
type ScopeValuer interface {
	ScopeValue(key string) (string, bool)
}

// expandScope replaces {field} placeholders in pattern with scope values.
// Missing fields expand to the empty string.
func expandScope(pattern string, scope any) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		end := strings.IndexByte(pattern[open:], '}')
		if end < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		b.WriteString(pattern[:open])
		v, _ := scopeValue(scope, pattern[open+1:open+end])
		b.WriteString(v)
		pattern = pattern[open+end+1:]
	}
}
