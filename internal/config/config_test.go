package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.False(t, cfg.IsRemote())
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 3, cfg.RemoteMaxRetries)
	assert.Equal(t, 7, cfg.BackupKeep)
	assert.Equal(t, filepath.Join(dir, "gowatch.db"), cfg.DatabaseFile)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.BackupDir)
}

func TestLoadRemoteBackend(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("BACKEND", "Remote")
	t.Setenv("REMOTE_API_URL", "https://script.example/exec")
	t.Setenv("REMOTE_SHEET_ID", "sheet-1")
	t.Setenv("REMOTE_MAX_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsRemote())
	assert.Equal(t, 5, cfg.RemoteMaxRetries)
	assert.Equal(t, RemoteConfig{APIURL: "https://script.example/exec", SheetID: "sheet-1"}, cfg.Remote())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"local", Config{Backend: BackendLocal, BackupKeep: 3}, false},
		{"remote complete", Config{Backend: BackendRemote, RemoteAPIURL: "u", RemoteSheetID: "s"}, false},
		{"remote without url", Config{Backend: BackendRemote, RemoteSheetID: "s"}, true},
		{"remote without sheet", Config{Backend: BackendRemote, RemoteAPIURL: "u"}, true},
		{"unknown backend", Config{Backend: "ftp"}, true},
		{"negative retries", Config{Backend: BackendLocal, RemoteMaxRetries: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateClampsBackupKeep(t *testing.T) {
	cfg := Config{Backend: BackendLocal, BackupKeep: 0}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.BackupKeep)
}

func TestParseRemoteConfig(t *testing.T) {
	remote, err := ParseRemoteConfig([]byte(`{"apiUrl": " https://script.example/exec ", "sheetId": "abc", "showSheet": "Series"}`))
	require.NoError(t, err)

	assert.Equal(t, &RemoteConfig{APIURL: "https://script.example/exec", SheetID: "abc"}, remote)
}

func TestParseRemoteConfigRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"missing sheetId": `{"apiUrl": "https://script.example/exec"}`,
		"missing apiUrl":  `{"sheetId": "abc"}`,
		"blank values":    `{"apiUrl": " ", "sheetId": "abc"}`,
		"invalid json":    `{"apiUrl": `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRemoteConfig([]byte(doc))
			assert.True(t, models.IsParse(err))
		})
	}
}
