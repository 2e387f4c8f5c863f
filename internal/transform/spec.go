package transform

import (
	"path/filepath"
	"strings"
)

// Kind distinguishes the three possible outcomes of a transform declaration.
type Kind int

const (
	KindIdentity Kind = iota
	KindSkip
	KindCommand
)

// Spec describes what to do for one version. The zero value is Identity.
type Spec struct {
	Kind    Kind
	Command string
	Args    []string
	Ext     string
}

// Identity stores the original bytes under the original extension.
func Identity() Spec {
	return Spec{Kind: KindIdentity}
}

// Skip omits the version from storage, URLs and deletes.
func Skip() Spec {
	return Spec{Kind: KindSkip}
}

// Command runs an external tool and stores its output under ext.
func Command(name string, args []string, ext string) Spec {
	return Spec{
		Kind:    KindCommand,
		Command: name,
		Args:    append([]string(nil), args...),
		Ext:     strings.TrimPrefix(strings.ToLower(ext), "."),
	}
}

// IsSkip reports whether the version is skipped.
func (s Spec) IsSkip() bool {
	return s.Kind == KindSkip
}

// Extension returns the extension the artifact will carry, given the source
// file's extension.
func (s Spec) Extension(sourceExt string) string {
	if s.Kind == KindCommand && s.Ext != "" {
		return s.Ext
	}
	return sourceExt
}

// Placeholders recognised in Command arguments. OutputRootPlaceholder is the
// output path without its extension, for tools such as pdftoppm that append
// the extension themselves.
const (
	InputPlaceholder      = "{input}"
	OutputPlaceholder     = "{output}"
	OutputRootPlaceholder = "{output_root}"
)

// ExpandArgs substitutes the input and output paths into args. When no
// placeholder appears, input is prepended and output appended, so
// `convert -resize 100x100` becomes `convert <input> -resize 100x100 <output>`.
func ExpandArgs(args []string, input, output string) []string {
	templated := false
	for _, a := range args {
		if strings.Contains(a, InputPlaceholder) || strings.Contains(a, OutputPlaceholder) || strings.Contains(a, OutputRootPlaceholder) {
			templated = true
			break
		}
	}
	if !templated {
		out := make([]string, 0, len(args)+2)
		out = append(out, input)
		out = append(out, args...)
		return append(out, output)
	}
	root := strings.TrimSuffix(output, filepath.Ext(output))
	r := strings.NewReplacer(
		OutputRootPlaceholder, root,
		InputPlaceholder, input,
		OutputPlaceholder, output,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
