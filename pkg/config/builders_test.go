package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/aund/internal/bytesize"
	"github.com/marmos91/aund/pkg/metadata"
	"github.com/marmos91/aund/pkg/passwd"
	"github.com/marmos91/aund/pkg/transport/aun"
	"github.com/marmos91/aund/pkg/transport/beebem"
)

func TestCreateTransport(t *testing.T) {
	cfg := GetDefaultConfig()

	tr, err := CreateTransport(&cfg.Transport)
	if err != nil {
		t.Fatalf("CreateTransport(aun) failed: %v", err)
	}
	if _, ok := tr.(*aun.Transport); !ok {
		t.Errorf("Expected *aun.Transport, got %T", tr)
	}

	cfg.Transport.Type = TransportBeebEm
	cfg.Transport.BeebEmConfig = "econet.cfg"
	tr, err = CreateTransport(&cfg.Transport)
	if err != nil {
		t.Fatalf("CreateTransport(beebem) failed: %v", err)
	}
	if _, ok := tr.(*beebem.Transport); !ok {
		t.Errorf("Expected *beebem.Transport, got %T", tr)
	}

	cfg.Transport.Type = "ethernet"
	if _, err := CreateTransport(&cfg.Transport); err == nil {
		t.Error("Expected error for unknown transport type")
	}
}

func TestCreateMetadataStore_Symlink(t *testing.T) {
	store, err := CreateMetadataStore(&MetadataConfig{Type: MetadataSymlink})
	if err != nil {
		t.Fatalf("CreateMetadataStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	path := filepath.Join(t.TempDir(), "prog")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ctx := context.Background()
	want := metadata.Meta{Load: 0xFFFF1900, Exec: 0xFFFF8023}
	if err := store.Set(ctx, path, want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestCreateMetadataStore_Badger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "meta")
	store, err := CreateMetadataStore(&MetadataConfig{Type: MetadataBadger, Path: dir})
	if err != nil {
		t.Fatalf("CreateMetadataStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected badger directory to be created: %v", err)
	}
}

func TestCreateMetadataStore_Unknown(t *testing.T) {
	if _, err := CreateMetadataStore(&MetadataConfig{Type: "sqlite"}); err == nil {
		t.Error("Expected error for unknown metadata store type")
	}
}

func TestOpenPasswordFile(t *testing.T) {
	pw, err := OpenPasswordFile(&FileServerConfig{})
	if err != nil || pw != nil {
		t.Errorf("Expected nil file without a password_file, got %v, %v", pw, err)
	}

	path := filepath.Join(t.TempDir(), "passwd")
	hash, err := passwd.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("alice:"+hash+":Users/alice:3\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	pw, err = OpenPasswordFile(&FileServerConfig{PasswordFile: path})
	if err != nil {
		t.Fatalf("OpenPasswordFile failed: %v", err)
	}
	acct, err := pw.Lookup("ALICE")
	if err != nil {
		t.Fatalf("Expected alice to be found case-insensitively: %v", err)
	}
	if acct.URD != "Users/alice" {
		t.Errorf("Expected URD 'Users/alice', got %q", acct.URD)
	}

	if _, err := OpenPasswordFile(&FileServerConfig{PasswordFile: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("Expected error for a missing password file")
	}
}

func TestBuildTypemap(t *testing.T) {
	tm := BuildTypemap(&TypemapConfig{
		Default: 0xFFD,
		Rules: []TypeRuleConfig{
			{Name: "*.txt", Type: 0xFFF},
			{PermMask: 0o111, PermValue: 0o111, Type: 0xFEB},
		},
	})

	if tm.Default != 0xFFD {
		t.Errorf("Expected default 0xFFD, got %#x", tm.Default)
	}
	if len(tm.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(tm.Rules))
	}
	if tm.Rules[1].PermMask != fs.FileMode(0o111) {
		t.Errorf("Expected perm mask 0111, got %o", tm.Rules[1].PermMask)
	}
}

func TestFileServerConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.FileServer.URD = "Users"
	cfg.FileServer.MaxSaveSize = 2 * bytesize.MiB
	cfg.FileServer.TransferTimeout = 5 * time.Second

	fsCfg := cfg.FileServer.FileServer(nil, nil, "aund 1.0")
	if fsCfg.Root != DefaultRoot || fsCfg.URD != "Users" || fsCfg.Lib != "Library" {
		t.Errorf("Unexpected paths: %+v", fsCfg)
	}
	if fsCfg.MaxSaveSize != 2<<20 {
		t.Errorf("Expected max save size 2MiB, got %d", fsCfg.MaxSaveSize)
	}
	if fsCfg.TransferTimeout != 5*time.Second {
		t.Errorf("Expected transfer timeout 5s, got %v", fsCfg.TransferTimeout)
	}
	if fsCfg.Typemap == nil || fsCfg.Typemap.Default != 0xFFD {
		t.Errorf("Expected typemap with default 0xFFD, got %+v", fsCfg.Typemap)
	}
	if fsCfg.Version != "aund 1.0" {
		t.Errorf("Expected version 'aund 1.0', got %q", fsCfg.Version)
	}

	psCfg := cfg.PrintServer.PrintServer()
	if psCfg.Name != "PRINT" || psCfg.SpoolDir != "/var/spool/aund" {
		t.Errorf("Unexpected print server config: %+v", psCfg)
	}
}
