package gherkin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadFeaturesWalksDirectoriesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.feature", "Feature: bravo\nScenario: s\n  Given a step\n")
	writeFile(t, dir, "a.feature", "Feature: alpha\nScenario: s\n  Given a step\n")
	writeFile(t, dir, "sub/c.feature", "Feature: charlie\nScenario: s\n  Given a step\n")
	writeFile(t, dir, "ignored.txt", "not a feature")
	writeFile(t, dir, "comments.feature", "# nothing executable\n")

	feats, err := LoadFeatures(dir)
	require.NoError(t, err)
	require.Len(t, feats, 3)
	assert.Equal(t, "alpha", feats[0].Name)
	assert.Equal(t, "bravo", feats[1].Name)
	assert.Equal(t, "charlie", feats[2].Name)
}

func TestLoadFeaturesPreservesArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.feature", "Feature: one\nScenario: s\n  Given a\n")
	two := writeFile(t, dir, "two.feature", "Feature: two\nScenario: s\n  Given a\n")

	feats, err := LoadFeatures(two, one)
	require.NoError(t, err)
	require.Len(t, feats, 2)
	assert.Equal(t, "two", feats[0].Name)
	assert.Equal(t, "one", feats[1].Name)
}

func TestLoadFeaturesAggregatesParseErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad1.feature", "Feature: x\nRule: nope\n")
	writeFile(t, dir, "bad2.feature", "stray text\n")
	writeFile(t, dir, "good.feature", "Feature: ok\nScenario: s\n  Given a\n")

	feats, err := LoadFeatures(dir)
	require.Error(t, err)
	assert.Nil(t, feats)

	var pe ParseErrors
	require.ErrorAs(t, err, &pe)
	require.Len(t, pe, 2)
	assert.Contains(t, err.Error(), "bad1.feature")
	assert.Contains(t, err.Error(), "bad2.feature")
}

func TestLoadFeaturesMissingPath(t *testing.T) {
	_, err := LoadFeatures(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}
