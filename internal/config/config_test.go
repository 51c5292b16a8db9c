package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"AUTH_USERNAME":      "admin",
		"AUTH_PASSWORD":      "hashed",
		"AUTH_COOKIE_SECRET": "secret",
		"SMTP_HOST":          "smtp.example.com",
		"SMTP_USER":          "smtpuser",
		"SMTP_PASS":          "smtppass",
		"IMAP_HOST":          "imap.example.com",
		"IMAP_USER":          "imapuser",
		"IMAP_PASS":          "imappass",
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	clearEnv(t, "AUTH_USERNAME", "AUTH_PASSWORD", "AUTH_COOKIE_SECRET",
		"SMTP_HOST", "SMTP_USER", "SMTP_PASS", "IMAP_HOST", "IMAP_USER", "IMAP_PASS")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected an error when required environment variables are unset")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	setEnv(t, requiredEnv())
	clearEnv(t, "DATABASE_PATH", "PORT", "SMTP_PORT", "IMAP_PORT", "TRASH_FOLDER_ID", "JUNK_FOLDER_ID")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.DatabasePath != "meremail.db" {
		t.Errorf("DatabasePath = %q, want default", cfg.DatabasePath)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want default 3000", cfg.Port)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want default 587", cfg.SMTPPort)
	}
	if cfg.IMAPPort != 993 {
		t.Errorf("IMAPPort = %d, want default 993", cfg.IMAPPort)
	}
	if cfg.TrashFolderID != nil || cfg.JunkFolderID != nil {
		t.Error("unset folder ids should resolve to nil")
	}
	if !cfg.EMLBackupEnabled {
		t.Error("EML_BACKUP_ENABLED should default to true")
	}
}

func TestFromEnvInvalidInteger(t *testing.T) {
	setEnv(t, requiredEnv())
	setEnv(t, map[string]string{"PORT": "not-a-number"})

	if _, err := FromEnv(); err == nil {
		t.Error("expected an error for a non-numeric PORT")
	}
}

func TestFromEnvFolderIDsAndAuxFolders(t *testing.T) {
	setEnv(t, requiredEnv())
	setEnv(t, map[string]string{
		"TRASH_FOLDER_ID":  "3",
		"JUNK_FOLDER_ID":   "7",
		"IMAP_AUX_FOLDERS": "Archive, Sent ,  ,Receipts",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.TrashFolderID == nil || *cfg.TrashFolderID != 3 {
		t.Errorf("TrashFolderID = %v, want 3", cfg.TrashFolderID)
	}
	if cfg.JunkFolderID == nil || *cfg.JunkFolderID != 7 {
		t.Errorf("JunkFolderID = %v, want 7", cfg.JunkFolderID)
	}
	want := []string{"Archive", "Sent", "Receipts"}
	if len(cfg.IMAPAuxFolders) != len(want) {
		t.Fatalf("IMAPAuxFolders = %v, want %v", cfg.IMAPAuxFolders, want)
	}
	for i, w := range want {
		if cfg.IMAPAuxFolders[i] != w {
			t.Errorf("IMAPAuxFolders[%d] = %q, want %q", i, cfg.IMAPAuxFolders[i], w)
		}
	}
}

func TestDataRootDerivedFromDatabasePath(t *testing.T) {
	setEnv(t, requiredEnv())
	setEnv(t, map[string]string{"DATABASE_PATH": "/var/lib/meremail/meremail.db"})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.DataRoot != "/var/lib/meremail" {
		t.Errorf("DataRoot = %q, want /var/lib/meremail", cfg.DataRoot)
	}
}
