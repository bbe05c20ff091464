package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPreprocessor(defines ...string) *Preprocessor {
	p := &Preprocessor{
		Log:     zap.NewNop(),
		Defines: make(map[string]struct{}),
	}
	for _, d := range defines {
		p.Defines[d] = struct{}{}
	}
	return p
}

func TestPreprocessIfdef(t *testing.T) {
	src := []byte("#ifdef full\nyes\n#else\nno\n#endif\n")

	out, err := newPreprocessor("full").Preprocess(src, "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "yes\n", string(out))

	out, err = newPreprocessor().Preprocess(src, "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "no\n", string(out))
}

func TestPreprocessIfndef(t *testing.T) {
	src := []byte("#ifndef full\nno\n#endif\nalways\n")
	out, err := newPreprocessor("full").Preprocess(src, "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "always\n", string(out))
}

func TestPreprocessNested(t *testing.T) {
	src := []byte("#ifdef a\n#ifdef b\nboth\n#endif\nouter\n#endif\n")
	out, err := newPreprocessor("a").Preprocess(src, "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "outer\n", string(out))
}

func TestPreprocessErrors(t *testing.T) {
	p := newPreprocessor()
	_, err := p.Preprocess([]byte("#endif\n"), "test.wgsl")
	assert.ErrorContains(t, err, "mismatched endif")

	_, err = p.Preprocess([]byte("#ifdef a\n#else\n#else\n#endif\n"), "test.wgsl")
	assert.ErrorContains(t, err, "second else")

	_, err = p.Preprocess([]byte("#frobnicate\n"), "test.wgsl")
	assert.ErrorContains(t, err, "unknown preprocessor directive")
}

func TestPreprocessLetRewrite(t *testing.T) {
	out, err := newPreprocessor().Preprocess([]byte("let x = 1;\nletters\n"), "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;\nletters\n", string(out))
}

func TestPreprocessImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.wgsl"), []byte("fn util() {}\n"), 0o666))

	p := newPreprocessor()
	p.ImportDir = dir
	out, err := p.Preprocess([]byte("#import util\nfn main() {}\n"), "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "fn util() {}\n\nfn main() {}\n", string(out))

	_, err = p.Preprocess([]byte("#import missing\n"), "test.wgsl")
	assert.ErrorContains(t, err, `couldn't import "missing"`)

	// An import in an inactive branch is loaded but not emitted.
	out, err = p.Preprocess([]byte("#ifdef never\n#import util\n#endif\n"), "test.wgsl")
	require.NoError(t, err)
	assert.Empty(t, string(out))
}

func TestPreprocessEnable(t *testing.T) {
	out, err := newPreprocessor().Preprocess([]byte("#enable f16\nfn main() {}\n"), "test.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "//__#enable f16\nfn main() {}\n", string(out))

	// postprocess strips the escape again.
	assert.NotContains(t, string(postprocess(out)), "//__")
	assert.Contains(t, string(postprocess(out)), "f16")
}

func TestShaderMarkers(t *testing.T) {
	p := newPreprocessor()
	out, err := p.Preprocess([]byte("#shader vertex\n@vertex fn vs() {}\n#shader fragment\n@fragment fn fs() {}\n"), "test.wgsl")
	require.NoError(t, err)
	require.NoError(t, p.CheckStages())
	// Markers are dropped from the output.
	assert.Equal(t, "@vertex fn vs() {}\n@fragment fn fs() {}\n", string(out))
}

func TestShaderMarkersMissingStage(t *testing.T) {
	p := newPreprocessor()
	_, err := p.Preprocess([]byte("#shader vertex\n@vertex fn vs() {}\n"), "test.wgsl")
	require.NoError(t, err)
	assert.ErrorContains(t, p.CheckStages(), "missing #shader fragment")

	// CheckStages resets; a file without markers passes.
	assert.NoError(t, p.CheckStages())
}

func TestShaderMarkerInInactiveBranch(t *testing.T) {
	// A marker inside an inactive branch does not count toward the stage
	// check.
	p := newPreprocessor()
	_, err := p.Preprocess([]byte("#shader vertex\n#ifdef never\n#shader fragment\n#endif\n"), "test.wgsl")
	require.NoError(t, err)
	assert.ErrorContains(t, p.CheckStages(), "missing #shader fragment")
}

func TestShaderMarkerErrors(t *testing.T) {
	p := newPreprocessor()
	_, err := p.Preprocess([]byte("#shader geometry\n"), "test.wgsl")
	assert.ErrorContains(t, err, "unknown shader stage")

	p = newPreprocessor()
	_, err = p.Preprocess([]byte("#shader vertex\n#shader vertex\n"), "test.wgsl")
	assert.ErrorContains(t, err, "duplicate #shader vertex")
}

func TestParsePermutations(t *testing.T) {
	perms := parsePermutations([]byte(`# comment
scene_mesh
+ scene_lit
+ scene_textured: textured extra
`))
	require.Len(t, perms, 1)
	assert.Equal(t, []Permutation{
		{Name: "scene_lit"},
		{Name: "scene_textured", Defines: []string{"textured", "extra"}},
	}, perms["scene_mesh"])
}
