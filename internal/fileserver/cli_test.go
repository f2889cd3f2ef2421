package fileserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/marmos91/aund/pkg/metadata"
	"github.com/marmos91/aund/pkg/metadata/store/symlink"
	"github.com/marmos91/aund/pkg/passwd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(full string) cliCommand {
	for _, c := range cliCommands {
		if c.full == full {
			return c
		}
	}
	panic("no command " + full)
}

func TestCommandMatching(t *testing.T) {
	tests := []struct {
		word string
		cmd  string
		want bool
	}{
		{"INFO", "INFO", true},
		{"info", "INFO", true},
		{"INF.", "INFO", true},
		{"IN.", "INFO", false},
		{"I.", "INFO", false},
		{"I.", "I", true},
		{"REN", "RENAME", false},
		{"REN.", "RENAME", true},
		{"RE.", "RENAME", false},
		{"RENAMED.", "RENAME", false},
		{"SDIS.", "SDISC", true},
		{"SDI.", "SDISC", false},
	}
	for _, tt := range tests {
		t.Run(tt.word+"/"+tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, findCommand(tt.cmd).matches(tt.word))
		})
	}
}

func TestGetArg(t *testing.T) {
	arg, rest := getArg("  alice secret")
	assert.Equal(t, "alice", arg)
	assert.Equal(t, "secret", rest)

	arg, rest = getArg(`"two words" tail`)
	assert.Equal(t, "two words", arg)
	assert.Equal(t, " tail", rest)

	arg, rest = getArg(`"unterminated`)
	assert.Equal(t, "unterminated", arg)
	assert.Equal(t, "", rest)

	arg, rest = getArg("")
	assert.Equal(t, "", arg)
	assert.Equal(t, "", rest)
}

func TestUnrecognisedCommand(t *testing.T) {
	ts := newTestServer(t)
	d := ts.do(FuncCLI, [3]uint8{}, cr("*CAT foo")...)
	assert.Equal(t, append([]byte{ccUnrec, 0}, cr("*CAT foo")...), d)

	d = ts.do(FuncCLI, [3]uint8{}, cr("I WANT")...)
	assert.Equal(t, ccUnrec, d[0])
}

func TestLoginReplacesSession(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	assert.Equal(t, [3]uint8{1, 2, 3}, env)
	first := ts.session()
	h := ts.open(env, false, false, "$.f")
	require.NotNil(t, first.Handle(h))

	env = ts.login("bob")
	second := ts.session()
	assert.NotSame(t, first, second)
	assert.Equal(t, "bob", second.Login)
	assert.Nil(t, first.Handle(h), "old handles are closed")
	assert.Equal(t, [3]uint8{1, 2, 3}, env)
}

func newPasswordFile(t *testing.T) *passwd.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passwd")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	pw, err := passwd.Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, pw.Add("alice", "secret", "Users/alice", 2))
	return pw
}

func TestLoginWithPasswordFile(t *testing.T) {
	pw := newPasswordFile(t)
	ts := newTestServer(t, func(c *Config) { c.Passwords = pw })
	require.NoError(t, os.MkdirAll(filepath.Join(ts.root, "Users", "alice"), 0o755))

	assertError(t, ts.do(FuncCLI, [3]uint8{}, cr("I AM alice wrong")...), CodeBadPassword)
	assertError(t, ts.do(FuncCLI, [3]uint8{}, cr("I AM mallory secret")...), CodeBadPassword)

	d := ts.do(FuncCLI, [3]uint8{}, cr("i am ALICE secret")...)
	require.Equal(t, ccLogon, d[0])
	assert.Equal(t, uint8(2), d[5], "boot option")

	sess := ts.session()
	assert.Equal(t, "alice", sess.Login)
	assert.Equal(t, "Users/alice", sess.URD)
	assert.Equal(t, "Users/alice", sess.Handle(d[2]).Path)
}

func TestPass(t *testing.T) {
	pw := newPasswordFile(t)
	ts := newTestServer(t, func(c *Config) { c.Passwords = pw })
	require.NoError(t, os.MkdirAll(filepath.Join(ts.root, "Users", "alice"), 0o755))

	assertError(t, ts.do(FuncCLI, [3]uint8{}, cr("PASS secret new")...), CodeWhoAreYou)

	env := ts.login("alice secret")
	assertError(t, ts.do(FuncCLI, env, cr("PASS wrong new")...), CodeBadPassword)
	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("PASS secret new")...))

	_, err := pw.Validate("alice", "new")
	assert.NoError(t, err)
}

func TestPassWithoutPasswordFile(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	assertError(t, ts.do(FuncCLI, env, cr("PASS a b")...), CodeLocked)
}

func TestDirAndLib(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	require.NoError(t, os.MkdirAll(filepath.Join(ts.root, "Games", "Elite"), 0o755))

	d := ts.do(FuncCLI, env, cr("DIR Games")...)
	require.Equal(t, ccDir, d[0], "%q", d)
	csd := d[2]
	assert.Equal(t, "Games", ts.session().Handle(csd).Path)
	assert.Equal(t, 3, ts.session().OpenHandles(), "old csd is closed")
	env[1] = csd

	// Relative to the new csd, with a case-insensitive match.
	d = ts.do(FuncCLI, env, cr("LIB elite")...)
	require.Equal(t, ccLib, d[0])
	assert.Equal(t, "Games/Elite", ts.session().Handle(d[2]).Path)

	ts.writeFile("plain", nil)
	assertError(t, ts.do(FuncCLI, env, cr("DIR $.plain")...), CodeNotDir)
}

func TestSDisc(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")

	d := ts.do(FuncCLI, env, cr("SDIS.")...)
	require.Equal(t, ccSDisc, d[0])
	require.Len(t, d, 5)
	sess := ts.session()
	assert.Equal(t, ".", sess.Handle(d[2]).Path)
	assert.Equal(t, "Library", sess.Handle(d[4]).Path)
	assert.Equal(t, 3, sess.OpenHandles())
}

func TestInfoCommand(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	ts.writeFile("readme", []byte("hello"))

	d := ts.do(FuncCLI, env, cr("INFO readme")...)
	require.Equal(t, ccInfo, d[0])
	text := string(d[2:])
	require.True(t, strings.HasSuffix(text, "\x80"))
	assert.True(t, strings.HasPrefix(text, "readme     "))
	assert.Contains(t, text, "000005")
}

func TestRenameCommand(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	ts.writeFile("old", []byte("x"))
	ts.writeFile("taken", []byte("y"))

	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("RENAME old new")...))
	_, err := os.Stat(filepath.Join(ts.root, "new"))
	assert.NoError(t, err)

	assertError(t, ts.do(FuncCLI, env, cr("REN. new taken")...), CodeExists)
	assertError(t, ts.do(FuncCLI, env, cr("RENAME new")...), CodeBadRename)
}

func TestCDirAndDeleteCommands(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")

	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("CDIR Work")...))
	st, err := os.Stat(filepath.Join(ts.root, "Work"))
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	assertError(t, ts.do(FuncCLI, env, cr("CDIR Work")...), CodeExists)

	ts.writeFile("Work/file", nil)
	assertError(t, ts.do(FuncCLI, env, cr("DELETE Work")...), CodeDirNotEmpty)
	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("DEL. Work.file")...))
	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("DELETE Work")...))
	_, err = os.Stat(filepath.Join(ts.root, "Work"))
	assert.True(t, os.IsNotExist(err))
}

func TestAccessCommand(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	ts.writeFile("f", nil)

	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("ACCESS f WR/R")...))
	st, err := os.Stat(filepath.Join(ts.root, "f"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	assertError(t, ts.do(FuncCLI, env, cr("ACCESS f XYZ")...), CodeBadInfo)
}

func TestParseAccess(t *testing.T) {
	a, err := parseAccess("LWR/R")
	require.NoError(t, err)
	assert.Equal(t, AccessUW|AccessUR|AccessOR, a)

	a, err = parseAccess("/wr")
	require.NoError(t, err)
	assert.Equal(t, AccessOW|AccessOR, a)

	_, err = parseAccess("R/R/R")
	assert.ErrorIs(t, err, ErrBadAttribute)
}

func TestLoadAndSaveCommandsDeferToClient(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	assert.Equal(t, []byte{ccLoad, 0}, ts.do(FuncCLI, env, cr("LOAD prog")...))
	assert.Equal(t, []byte{ccSave, 0}, ts.do(FuncCLI, env, cr("SAVE prog 1900 +100")...))
}

func TestByeEndsSession(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("BYE")...))
	assert.Nil(t, ts.session())
}

func TestRenameCarriesMetadata(t *testing.T) {
	ts := newTestServer(t)
	env := ts.login("alice")
	ts.writeFile("old", []byte("x"))
	oldHost := filepath.Join(ts.root, "old")
	want := metadata.Meta{Load: 0xfffffa00, Exec: 0x12345678}
	require.NoError(t, ts.srv.meta.Set(context.Background(), oldHost, want))

	assert.Equal(t, []byte{ccDone, 0}, ts.do(FuncCLI, env, cr("RENAME old new")...))

	got, err := ts.srv.meta.Get(context.Background(), filepath.Join(ts.root, "new"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	_, err = ts.srv.meta.Get(context.Background(), oldHost)
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

// failingRenameStore refuses to move metadata.
type failingRenameStore struct {
	metadata.Store
}

func (failingRenameStore) Rename(context.Context, string, string) error {
	return syscall.EACCES
}

func TestRenameUndoneWhenMetadataCannotMove(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.Metadata = failingRenameStore{symlink.New()} })
	env := ts.login("alice")
	ts.writeFile("old", []byte("x"))

	assertError(t, ts.do(FuncCLI, env, cr("RENAME old new")...), CodeNoAccess)

	_, err := os.Stat(filepath.Join(ts.root, "old"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(ts.root, "new"))
	assert.True(t, os.IsNotExist(err))
}
