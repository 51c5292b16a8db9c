package store

import "gorm.io/gorm"

// installFTS creates the FTS5 shadow tables and the triggers that keep them
// synchronized with the base tables at every transaction boundary (spec §3
// "refreshed synchronously on write", §4.A "triggers attached to the base
// tables"). GORM has no first-class mapping for virtual tables, so this is
// raw SQL executed once at startup — idempotent via IF NOT EXISTS.
func installFTS(db *gorm.DB) error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			subject, content_text, content='messages', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_ai AFTER INSERT ON messages BEGIN
			INSERT INTO messages_fts(rowid, subject, content_text) VALUES (new.id, new.subject, new.content_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_ad AFTER DELETE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, subject, content_text) VALUES ('delete', old.id, old.subject, old.content_text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_au AFTER UPDATE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, subject, content_text) VALUES ('delete', old.id, old.subject, old.content_text);
			INSERT INTO messages_fts(rowid, subject, content_text) VALUES (new.id, new.subject, new.content_text);
		END`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS contacts_fts USING fts5(
			name, email, content='contacts', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS contacts_fts_ai AFTER INSERT ON contacts BEGIN
			INSERT INTO contacts_fts(rowid, name, email) VALUES (new.id, new.name, new.email);
		END`,
		`CREATE TRIGGER IF NOT EXISTS contacts_fts_ad AFTER DELETE ON contacts BEGIN
			INSERT INTO contacts_fts(contacts_fts, rowid, name, email) VALUES ('delete', old.id, old.name, old.email);
		END`,
		`CREATE TRIGGER IF NOT EXISTS contacts_fts_au AFTER UPDATE ON contacts BEGIN
			INSERT INTO contacts_fts(contacts_fts, rowid, name, email) VALUES ('delete', old.id, old.name, old.email);
			INSERT INTO contacts_fts(rowid, name, email) VALUES (new.id, new.name, new.email);
		END`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS attachments_fts USING fts5(
			filename, content='attachments', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS attachments_fts_ai AFTER INSERT ON attachments BEGIN
			INSERT INTO attachments_fts(rowid, filename) VALUES (new.id, new.filename);
		END`,
		`CREATE TRIGGER IF NOT EXISTS attachments_fts_ad AFTER DELETE ON attachments BEGIN
			INSERT INTO attachments_fts(attachments_fts, rowid, filename) VALUES ('delete', old.id, old.filename);
		END`,
		`CREATE TRIGGER IF NOT EXISTS attachments_fts_au AFTER UPDATE ON attachments BEGIN
			INSERT INTO attachments_fts(attachments_fts, rowid, filename) VALUES ('delete', old.id, old.filename);
			INSERT INTO attachments_fts(rowid, filename) VALUES (new.id, new.filename);
		END`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// SearchResult is one hit returned by Store.Search across messages,
// contacts, and attachments (spec §6 "GET /api/search").
type SearchResult struct {
	Kind string `json:"kind"` // "message", "contact", "attachment"
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// Search runs the FTS query against all three indexes (spec §3).
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []SearchResult

	var msgRows []struct {
		ID      uint
		Subject string
	}
	if err := s.db.Raw(`
		SELECT m.id AS id, m.subject AS subject FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ? ORDER BY rank LIMIT ?`, query, limit).Scan(&msgRows).Error; err != nil {
		return nil, err
	}
	for _, r := range msgRows {
		results = append(results, SearchResult{Kind: "message", ID: r.ID, Text: r.Subject})
	}

	var contactRows []struct {
		ID    uint
		Email string
	}
	if err := s.db.Raw(`
		SELECT c.id AS id, c.email AS email FROM contacts_fts f
		JOIN contacts c ON c.id = f.rowid
		WHERE contacts_fts MATCH ? ORDER BY rank LIMIT ?`, query, limit).Scan(&contactRows).Error; err != nil {
		return nil, err
	}
	for _, r := range contactRows {
		results = append(results, SearchResult{Kind: "contact", ID: r.ID, Text: r.Email})
	}

	var attRows []struct {
		ID       uint
		Filename string
	}
	if err := s.db.Raw(`
		SELECT a.id AS id, a.filename AS filename FROM attachments_fts f
		JOIN attachments a ON a.id = f.rowid
		WHERE attachments_fts MATCH ? ORDER BY rank LIMIT ?`, query, limit).Scan(&attRows).Error; err != nil {
		return nil, err
	}
	for _, r := range attRows {
		results = append(results, SearchResult{Kind: "attachment", ID: r.ID, Text: r.Filename})
	}

	return results, nil
}
