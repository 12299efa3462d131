package vision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	names := ParseNames(`{0: 'Bacterial Leaf Blight', 1: 'Brown Spot', 2: "Leaf Smut"}`)
	require.Equal(t, []string{"Bacterial Leaf Blight", "Brown Spot", "Leaf Smut"}, names)

	sparse := ParseNames(`{2: 'Healthy', 0: 'Blast'}`)
	require.Equal(t, []string{"Blast", "", "Healthy"}, sparse)

	require.Nil(t, ParseNames(""))
	require.Nil(t, ParseNames("not a dict"))
}

func TestLabelFor(t *testing.T) {
	labels := []string{"Blast", ""}
	require.Equal(t, "Blast", LabelFor(labels, 0))
	require.Equal(t, "class_1", LabelFor(labels, 1))
	require.Equal(t, "class_7", LabelFor(labels, 7))
	require.Equal(t, "class_-1", LabelFor(labels, -1))
}

func TestResolveLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("Blast\n\n  Tungro \n"), 0o644))

	fromFile, err := ResolveLabels(path, `{0: 'ignored'}`)
	require.NoError(t, err)
	require.Equal(t, []string{"Blast", "Tungro"}, fromFile)

	fromMeta, err := ResolveLabels("", `{0: 'Blast'}`)
	require.NoError(t, err)
	require.Equal(t, []string{"Blast"}, fromMeta)

	defaults, err := ResolveLabels("", "")
	require.NoError(t, err)
	require.Equal(t, DefaultLabels, defaults)

	_, err = ResolveLabels(filepath.Join(dir, "missing.txt"), "")
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o644))
	_, err = ResolveLabels(empty, "")
	require.Error(t, err)
}
