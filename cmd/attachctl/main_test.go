package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDefinitions = `
definitions:
  - name: doc
    versions: [original, preview]
    storage_dir: "docs/{tenant}"
    transforms:
      preview:
        skip: true
`

func setupEnv(t *testing.T) (root, file string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "store")
	defs := filepath.Join(dir, "attachments.yaml")
	require.NoError(t, os.WriteFile(defs, []byte(testDefinitions), 0o644))
	file = filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o644))

	t.Setenv("ATTACHR_STORAGE_BACKEND", "local")
	t.Setenv("ATTACHR_STORAGE_LOCAL_ROOT", root)
	t.Setenv("ATTACHR_STORAGE_LOCAL_PUBLIC_URL", "/files")
	t.Setenv("ATTACHR_DEFINITIONS_PATH", defs)
	return root, file
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAttachctl_StoreURLDelete(t *testing.T) {
	root, file := setupEnv(t)

	out, err := execute(t, "store", "doc", file, "--scope", "tenant=acme")
	require.NoError(t, err)
	assert.Contains(t, out, "basename: report.pdf")
	assert.Contains(t, out, "docs/acme/report.pdf")
	assert.Contains(t, out, "preview      skipped")
	assert.FileExists(t, filepath.Join(root, "docs", "acme", "report.pdf"))

	out, err = execute(t, "url", "doc", "report.pdf", "--scope", "tenant=acme")
	require.NoError(t, err)
	assert.Equal(t, "/files/docs/acme/report.pdf", strings.TrimSpace(out))

	out, err = execute(t, "url", "doc", "report.pdf", "--scope", "tenant=acme", "--signed")
	require.NoError(t, err)
	assert.Contains(t, out, "signature=")

	out, err = execute(t, "url", "doc", "report.pdf", "--all", "--scope", "tenant=acme")
	require.NoError(t, err)
	assert.Contains(t, out, "preview      -")

	out, err = execute(t, "delete", "doc", "report.pdf", "--scope", "tenant=acme")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted docs/acme/report.pdf")
	assert.Contains(t, out, "skipped preview")
	assert.NoFileExists(t, filepath.Join(root, "docs", "acme", "report.pdf"))
}

func TestAttachctl_Errors(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "store", "nope", "x.png")
	assert.Error(t, err)

	_, err = execute(t, "url", "doc", "report.pdf", "--version", "huge")
	assert.Error(t, err)

	_, err = execute(t, "store", "doc")
	assert.Error(t, err)
}

func TestAttachctl_Definitions(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "definitions")
	require.NoError(t, err)
	assert.Contains(t, out, "doc")
	assert.Contains(t, out, "[original preview]")
}
