// Package imapingest implements the IMAP Ingestion component (spec §4.E):
// a primary IDLE loop on the upstream account's inbox plus a secondary
// polling loop over auxiliary folders, both feeding Parse → Import.
package imapingest

import (
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-imap/client"

	"github.com/jcgurango/meremail/internal/config"
)

func dial(cfg config.Config) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort)

	var c *client.Client
	var err error
	if cfg.IMAPSecure {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: cfg.IMAPHost})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("imapingest: dial %s: %w", addr, err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPass); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imapingest: login: %w", err)
	}
	return c, nil
}
