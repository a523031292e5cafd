package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFileA = `package sample

func Add(a, b int) int {
	return a + b
}

func Classify(x int) string {
	switch x {
	case 0:
		return "zero"
	case 1:
		return "one"
	case 2:
		return "two"
	default:
		return "other"
	}
}
`

const sampleFileB = `package sample

func Helper() int {
	return 42
}

func Caller() int {
	v := Helper()
	if v > 0 {
		return v + Add(1, 2)
	}
	return v
}
`

func writeSampleRepo(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()

	paths := []string{
		filepath.Join(dir, "a.go"),
		filepath.Join(dir, "b.go"),
	}
	require.NoError(t, os.WriteFile(paths[0], []byte(sampleFileA), 0o644))
	require.NoError(t, os.WriteFile(paths[1], []byte(sampleFileB), 0o644))
	return paths
}

// Two runs over the same inputs must produce identical, identically ordered
// output (spec §5/§8 item 5): extraction runs concurrently over a worker
// pool, so determinism depends on the final sort, not on file-processing
// order.
func TestRun_DeterministicAcrossRuns(t *testing.T) {
	files := writeSampleRepo(t)
	opts := DefaultOptions()

	first, err := Run(context.Background(), files, opts)
	require.NoError(t, err)
	second, err := Run(context.Background(), files, opts)
	require.NoError(t, err)

	require.Equal(t, len(first.Items), len(second.Items))
	for i := range first.Items {
		require.Equal(t, first.Items[i], second.Items[i], "item %d differs between runs", i)
	}
}

func TestRun_ItemsSortedByScoreThenFileThenLine(t *testing.T) {
	files := writeSampleRepo(t)
	result, err := Run(context.Background(), files, DefaultOptions())
	require.NoError(t, err)

	for i := 1; i < len(result.Items); i++ {
		prev, cur := result.Items[i-1], result.Items[i]
		if prev.Score != cur.Score {
			require.GreaterOrEqual(t, prev.Score, cur.Score)
			continue
		}
		if prev.File != cur.File {
			require.LessOrEqual(t, prev.File, cur.File)
			continue
		}
		require.LessOrEqual(t, prev.Line, cur.Line)
	}
}

func TestRun_NoFilesProducesEmptyResult(t *testing.T) {
	result, err := Run(context.Background(), nil, DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Empty(t, result.Functions)
}

func TestRun_SkipsUnanalyzableAndUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	goFile := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(goFile, []byte(sampleFileA), 0o644))

	badFile := filepath.Join(dir, "broken.go")
	require.NoError(t, os.WriteFile(badFile, []byte("this is not valid go {{{"), 0o644))

	textFile := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("not code"), 0o644))

	result, err := Run(context.Background(), []string{goFile, badFile, textFile}, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, result.Items)
}
