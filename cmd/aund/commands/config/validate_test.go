package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/aund/pkg/config"
)

func TestConfigWarnings(t *testing.T) {
	root := t.TempDir()
	pwFile := filepath.Join(root, "passwd")
	if err := os.WriteFile(pwFile, []byte("ALICE::alice:0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.GetDefaultConfig()
	cfg.FileServer.Root = root
	cfg.FileServer.PasswordFile = pwFile
	assert.Empty(t, configWarnings(cfg))

	cfg.FileServer.PasswordFile = ""
	cfg.API.Enabled = true
	cfg.API.Address = "0.0.0.0"
	warnings := configWarnings(cfg)
	assert.Len(t, warnings, 2)

	cfg.FileServer.Root = filepath.Join(root, "missing")
	assert.Len(t, configWarnings(cfg), 3)
}
