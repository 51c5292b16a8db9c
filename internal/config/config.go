// Package config resolves the process configuration once, from the
// environment, at startup. Per spec §9's design note ("Global
// configuration → struct threaded from main"), no component reaches for
// the environment itself; they all receive a Config (or a narrower slice
// of it) by value from cmd/meremaild.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultMaxAttachmentSize = 20 * 1024 * 1024 // 20 MiB

// Config is the fully resolved process configuration.
type Config struct {
	AuthUsername     string
	AuthPassword     string
	AuthCookieSecret string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSecure bool

	IMAPHost   string
	IMAPPort   int
	IMAPUser   string
	IMAPPass   string
	IMAPSecure bool

	// IMAPAuxFolders is the configured auxiliary-folder list the secondary
	// polling loop intersects against the account's actual folder list
	// (spec §4.E "Secondary polling loop").
	IMAPAuxFolders []string

	DatabasePath       string
	DataRoot           string
	MaxAttachmentSize  int64
	ImageProxyURL      string
	EMLBackupEnabled   bool
	DefaultSenderName  string
	DefaultSenderEmail string
	Port               int
	Production         bool

	// TrashFolderID/JunkFolderID name the local folders the rule engine and
	// scheduler retention sweep treat as "trash"/"junk" (spec §4.D
	// delete_thread action, §4.G retention sweep). Folders are opaque
	// caller-assigned ids; nil means none configured.
	TrashFolderID *uint
	JunkFolderID  *uint
}

// FromEnv resolves Config from the process environment. It returns a
// *errs-shaped validation error (via plain fmt.Errorf, translated by the
// caller to a fatal startup exit per spec §6 "Exit codes") when a required
// variable is missing.
func FromEnv() (Config, error) {
	c := Config{
		AuthUsername:       os.Getenv("AUTH_USERNAME"),
		AuthPassword:       os.Getenv("AUTH_PASSWORD"),
		AuthCookieSecret:   os.Getenv("AUTH_COOKIE_SECRET"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		IMAPHost:           os.Getenv("IMAP_HOST"),
		IMAPUser:           os.Getenv("IMAP_USER"),
		IMAPPass:           os.Getenv("IMAP_PASS"),
		DatabasePath:       getenvDefault("DATABASE_PATH", "meremail.db"),
		ImageProxyURL:      os.Getenv("IMAGE_PROXY_URL"),
		DefaultSenderName:  os.Getenv("DEFAULT_SENDER_NAME"),
		DefaultSenderEmail: os.Getenv("DEFAULT_SENDER_EMAIL"),
		Production:         strings.EqualFold(os.Getenv("NODE_ENV"), "production"),
	}

	var err error
	if c.SMTPPort, err = getenvInt("SMTP_PORT", 587); err != nil {
		return c, err
	}
	if c.IMAPPort, err = getenvInt("IMAP_PORT", 993); err != nil {
		return c, err
	}
	if c.Port, err = getenvInt("PORT", 3000); err != nil {
		return c, err
	}
	if c.MaxAttachmentSize, err = getenvInt64("MAX_ATTACHMENT_SIZE", defaultMaxAttachmentSize); err != nil {
		return c, err
	}
	if c.SMTPSecure, err = getenvBool("SMTP_SECURE", true); err != nil {
		return c, err
	}
	if c.IMAPSecure, err = getenvBool("IMAP_SECURE", true); err != nil {
		return c, err
	}
	if c.EMLBackupEnabled, err = getenvBool("EML_BACKUP_ENABLED", true); err != nil {
		return c, err
	}

	c.DataRoot = dirOf(c.DatabasePath)
	c.TrashFolderID = getenvUintPtr("TRASH_FOLDER_ID")
	c.JunkFolderID = getenvUintPtr("JUNK_FOLDER_ID")
	c.IMAPAuxFolders = splitCSV(os.Getenv("IMAP_AUX_FOLDERS"))

	missing := []string{}
	for name, v := range map[string]string{
		"AUTH_USERNAME":      c.AuthUsername,
		"AUTH_PASSWORD":      c.AuthPassword,
		"AUTH_COOKIE_SECRET": c.AuthCookieSecret,
		"SMTP_HOST":          c.SMTPHost,
		"SMTP_USER":          c.SMTPUser,
		"SMTP_PASS":          c.SMTPPass,
		"IMAP_HOST":          c.IMAPHost,
		"IMAP_USER":          c.IMAPUser,
		"IMAP_PASS":          c.IMAPPass,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return c, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getenvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, v, err)
	}
	return b, nil
}

func getenvUintPtr(key string) *uint {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil
	}
	u := uint(n)
	return &u
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
