package fileserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPathContext(t *testing.T) pathContext {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Users", "alice"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Library"), 0o755))
	return pathContext{root: root, urd: "Users/alice", csd: "Users/alice", lib: "Library"}
}

func TestResolveSelectors(t *testing.T) {
	pc := newPathContext(t)

	tests := []struct {
		acorn string
		want  string
	}{
		{"$", "."},
		{"", "Users/alice"},
		{"$.foo.bar", "foo/bar"},
		{"&", "Users/alice"},
		{"&.notes", "Users/alice/notes"},
		{"@.notes", "Users/alice/notes"},
		{"%.Basic", "Library/Basic"},
		{"notes", "Users/alice/notes"},
		{":TestDisc.$.foo", "foo"},
		{":TestDisc", "Users/alice"},
		{"$.a.^.b", "b"},
		{"$.^", "."},
		{"&.^", "Users"},
		{"foo/txt", "Users/alice/foo.txt"},
		{"$./hidden", "...hidden"},
		{"$.$x", "$x"},
	}
	for _, tt := range tests {
		t.Run(tt.acorn, func(t *testing.T) {
			got, err := pc.resolve(tt.acorn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveIsIdempotentOnRootedPaths(t *testing.T) {
	pc := newPathContext(t)

	first, err := pc.resolve("$.foo.bar")
	require.NoError(t, err)
	second, err := pc.resolve("$.foo.bar")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	again, err := pc.resolve("$." + acornLeaf("foo") + ".bar")
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestResolveMatchesExistingNames(t *testing.T) {
	pc := newPathContext(t)
	for _, name := range []string{"README", "prog,ffb", "averyverylongname"} {
		require.NoError(t, os.WriteFile(filepath.Join(pc.root, name), nil, 0o644))
	}

	tests := []struct {
		acorn string
		want  string
	}{
		{"$.readme", "README"},
		{"$.REA*", "README"},
		{"$.R?ADME", "README"},
		{"$.PROG", "prog,ffb"},
		{"$.AVERY*", "AVERY*"},
		{"$.library", "Library"},
		{"$.users.ALICE", "Users/alice"},
	}
	for _, tt := range tests {
		got, err := pc.resolve(tt.acorn)
		require.NoError(t, err, tt.acorn)
		assert.Equal(t, tt.want, got, tt.acorn)
	}
}

func TestResolveExactNameWins(t *testing.T) {
	pc := newPathContext(t)
	require.NoError(t, os.WriteFile(filepath.Join(pc.root, "Abc"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pc.root, "abc"), nil, 0o644))

	got, err := pc.resolve("$.abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestResolveRejectsParent(t *testing.T) {
	pc := newPathContext(t)
	pc.urd = "../escape"

	_, err := pc.resolve("&.x")
	assert.ErrorIs(t, err, ErrBadName)
}

func TestTransSimple(t *testing.T) {
	assert.Equal(t, "", transSimple(""))
	assert.Equal(t, "a/b", transSimple("a.b"))
	assert.Equal(t, "a.txt", transSimple("a/txt"))
	assert.Equal(t, "...x", transSimple("/x"))
	assert.Equal(t, "...", transSimple("/"))
}

func TestHostNames(t *testing.T) {
	name, ok := visibleName(".hidden")
	assert.False(t, ok)
	assert.Empty(t, name)

	name, ok = visibleName("...profile")
	assert.True(t, ok)
	assert.Equal(t, ".profile", name)

	assert.Equal(t, "/profile", acornName("...profile"))
	assert.Equal(t, "notes/txt", acornName("notes.txt"))
	assert.Equal(t, "prog", acornName("prog,ffb"))
	assert.Equal(t, "$", acornLeaf("."))
	assert.Equal(t, "alice", acornLeaf("Users/alice"))
}
