// Package importer implements the Importer component (spec §4.C): at-most-
// once insertion of one ImportableMessage per call, including identity
// reconciliation, threading, attachment persistence, EML archival, and rule
// invocation.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/mailnorm"
	"github.com/jcgurango/meremail/internal/mailparse"
	"github.com/jcgurango/meremail/internal/store"
)

// RuleApplier is the subset of the Rule Engine the Importer needs:
// evaluate the enabled rules against one message and apply the first
// match's action (spec §4.C "Rule application", §4.D).
type RuleApplier interface {
	ApplyOnImport(messageID uint, folderID *uint) error
}

// Config configures on-disk archival (spec §6 "Persisted layout").
type Config struct {
	AttachmentDir    string
	EMLBackupDir     string
	EMLBackupEnabled bool
}

// Importer consumes one ImportableMessage per call (spec §4.C).
type Importer struct {
	store *store.Store
	rules RuleApplier
	cfg   Config
	log   logging.Logger
}

func New(st *store.Store, rules RuleApplier, cfg Config) *Importer {
	return &Importer{store: st, rules: rules, cfg: cfg, log: logging.Logger{Name: "importer"}}
}

// Result is the outcome of one Import call (spec §4.C).
type Result struct {
	Imported  bool
	Reason    string // "duplicate" when Imported is false
	MessageID uint
	ThreadID  uint
}

// Import applies the full pipeline: dedup, identity reconciliation,
// threading, insertion, junctions, attachments, EML archival, and rule
// application — strictly ordered within a single message (spec §5).
func (imp *Importer) Import(msg *mailparse.ImportableMessage, folderID *uint) (Result, error) {
	if msg.MessageID != "" {
		existing, err := imp.store.FindMessageByMessageID(imp.store.DB(), msg.MessageID)
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			return Result{Imported: false, Reason: "duplicate"}, nil
		}
	}

	var (
		messageID uint
		threadID  uint
	)
	err := imp.store.Tx(func(tx *gorm.DB) error {
		sender, err := imp.resolveSender(tx, msg)
		if err != nil {
			return err
		}

		thread, err := imp.resolveThread(tx, msg, sender)
		if err != nil {
			return err
		}

		m := &store.Message{
			ThreadID:    &thread.ID,
			SenderID:    sender.ID,
			Subject:     msg.Subject,
			ContentText: msg.TextBody,
			ContentHTML: msg.HTMLBody,
			Headers:     msg.Headers,
			References:  store.StringList(msg.References),
			SentAt:      msg.SentAt,
			Status:      store.StatusReceived,
			Folder:      msg.SourceFolder,
		}
		if msg.MessageID != "" {
			id := msg.MessageID
			m.MessageID = &id
		}
		if msg.InReplyTo != "" {
			irt := msg.InReplyTo
			m.InReplyTo = &irt
		}
		if msg.IsRead {
			now := time.Now().UTC()
			m.ReadAt = &now
		}

		if err := imp.store.InsertMessage(tx, m); err != nil {
			return err
		}
		messageID = m.ID
		threadID = thread.ID

		if err := imp.store.AddMessageContact(tx, m.ID, sender.ID, store.RoleFrom); err != nil {
			return err
		}
		if err := imp.store.AddThreadContact(tx, thread.ID, sender.ID, store.ThreadRoleSender); err != nil {
			return err
		}

		if err := imp.processRecipients(tx, thread.ID, m.ID, msg.To, store.RoleTo, msg.IsSent); err != nil {
			return err
		}
		if err := imp.processRecipients(tx, thread.ID, m.ID, msg.CC, store.RoleCC, msg.IsSent); err != nil {
			return err
		}
		if err := imp.processRecipients(tx, thread.ID, m.ID, msg.BCC, store.RoleBCC, msg.IsSent); err != nil {
			return err
		}

		imp.persistAttachments(tx, m.ID, msg)

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if imp.cfg.EMLBackupEnabled {
		if err := imp.archiveEML(msg); err != nil {
			imp.log.Error("eml archival failed", err)
		}
	}

	if imp.rules != nil {
		if err := imp.rules.ApplyOnImport(messageID, folderID); err != nil {
			imp.log.Error("rule application on import failed", err)
		}
	}

	return Result{Imported: true, MessageID: messageID, ThreadID: threadID}, nil
}

// resolveSender implements identity reconciliation and impostor handling
// (spec §4.C).
func (imp *Importer) resolveSender(tx *gorm.DB, msg *mailparse.ImportableMessage) (*store.Contact, error) {
	fromEmail := msg.From.Email
	if fromEmail == "" {
		fromEmail = "unknown@unknown"
	}

	bucketOnCreate := store.BucketUnsorted
	if msg.IsJunk {
		bucketOnCreate = store.BucketQuarantine
	}

	sender, created, err := imp.store.UpsertContact(tx, fromEmail, msg.From.Name, bucketOnCreate)
	if err != nil {
		return nil, err
	}
	_ = created

	if msg.IsJunk && sender.IsMe {
		// Impostor handling: spoofed self-mail from a junk folder is
		// rewritten to the synthetic impostor contact (spec §4.C).
		return imp.store.GetOrCreateImpostor(tx)
	}

	if msg.IsSent {
		if err := imp.store.MarkIsMe(tx, sender.ID); err != nil {
			return nil, err
		}
		sender.IsMe = true
	} else if msg.DeliveredTo != "" {
		deliveredContact, _, err := imp.store.UpsertContact(tx, msg.DeliveredTo, "", store.BucketUnsorted)
		if err != nil {
			return nil, err
		}
		if err := imp.store.MarkIsMe(tx, deliveredContact.ID); err != nil {
			return nil, err
		}
	}

	return sender, nil
}

// resolveThread implements the four-step threading heuristic (spec §4.C).
func (imp *Importer) resolveThread(tx *gorm.DB, msg *mailparse.ImportableMessage, sender *store.Contact) (*store.Thread, error) {
	sentAt := time.Now().UTC()
	if msg.SentAt != nil {
		sentAt = *msg.SentAt
	}

	// Step 1: header references.
	refIDs := append([]string{msg.InReplyTo}, msg.References...)
	if thread, _, err := imp.store.FindThreadByMessageRef(tx, refIDs); err != nil {
		return nil, err
	} else if thread != nil {
		if err := imp.store.MaybeReassignCreator(tx, thread.ID, sender.ID, sentAt); err != nil {
			return nil, err
		}
		return thread, nil
	}

	normalizedSubject := mailnorm.NormalizeThreadSubject(msg.Subject)

	// Step 2: reply/forward subject prefix.
	if mailnorm.HasReplyPrefix(msg.Subject) {
		candidates, err := imp.store.FindThreadsByNormalizedSubject(tx, normalizedSubject)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			thread := candidates[0].Thread
			if err := imp.store.MaybeReassignCreator(tx, thread.ID, sender.ID, sentAt); err != nil {
				return nil, err
			}
			return &thread, nil
		}
	}

	// Step 3: cross-party heuristic — join only when the candidate
	// thread's creator.isMe differs from the current sender's isMe.
	candidates, err := imp.store.FindThreadsByNormalizedSubject(tx, normalizedSubject)
	if err != nil {
		return nil, err
	}
	for _, cand := range candidates {
		if cand.CreatorIsMe != sender.IsMe {
			if err := imp.store.MaybeReassignCreator(tx, cand.Thread.ID, sender.ID, sentAt); err != nil {
				return nil, err
			}
			return &cand.Thread, nil
		}
	}

	// Step 4: new thread.
	return imp.store.CreateThread(tx, msg.Subject, sender.ID)
}

// processRecipients implements §4.C "Recipient processing".
func (imp *Importer) processRecipients(tx *gorm.DB, threadID, messageID uint, addrs []mailparse.Address, role store.MessageContactRole, isSent bool) error {
	for _, a := range addrs {
		if a.Email == "" {
			continue
		}
		c, _, err := imp.store.UpsertContact(tx, a.Email, a.Name, store.BucketUnsorted)
		if err != nil {
			return err
		}
		if isSent && !c.IsMe && c.Bucket == store.BucketUnsorted {
			if err := imp.store.SetBucket(tx, c.ID, store.BucketApproved, false); err != nil {
				return err
			}
		}
		if err := imp.store.AddMessageContact(tx, messageID, c.ID, role); err != nil {
			return err
		}
		if err := imp.store.AddThreadContact(tx, threadID, c.ID, store.ThreadRoleRecipient); err != nil {
			return err
		}
	}
	return nil
}

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = filenameUnsafe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = "attachment"
	}
	return name
}

// persistAttachments implements §4.C "Attachments": each is written to the
// attachment directory with a sanitized, collision-resistant filename.
// Individual write failures are logged, not fatal (spec §4.C "Failure
// semantics").
func (imp *Importer) persistAttachments(tx *gorm.DB, messageID uint, msg *mailparse.ImportableMessage) {
	for _, a := range msg.Attachments {
		safeName := sanitizeFilename(a.Filename)
		relPath := fmt.Sprintf("%d_%s", messageID, safeName)
		fullPath := filepath.Join(imp.cfg.AttachmentDir, relPath)

		if err := os.MkdirAll(imp.cfg.AttachmentDir, 0o755); err != nil {
			imp.log.Error("attachment directory create failed", err)
			continue
		}
		if err := os.WriteFile(fullPath, a.Content, 0o644); err != nil {
			imp.log.Error("attachment write failed", err)
			continue
		}

		size := int64(len(a.Content))
		rec := &store.Attachment{
			MessageID: messageID,
			Filename:  a.Filename,
			FilePath:  fullPath,
			IsInline:  a.IsInline,
			Size:      &size,
		}
		if a.MimeType != "" {
			mt := a.MimeType
			rec.MimeType = &mt
		}
		if a.ContentID != "" {
			cid := a.ContentID
			rec.ContentID = &cid
		}
		if err := imp.store.InsertAttachment(tx, rec); err != nil {
			imp.log.Error("attachment row insert failed", err)
		}
	}
}

var messageIDUnsafe = regexp.MustCompile(`[^A-Za-z0-9._@-]+`)

func sanitizeMessageIDForPath(id string) string {
	id = strings.Trim(id, "<>")
	id = messageIDUnsafe.ReplaceAllString(id, "_")
	if id == "" {
		id = "unknown-message-id"
	}
	return id
}

// archiveEML writes the raw bytes to eml-backup/<folder>/<sanitized-
// message-id>.eml, prepended with synthetic folder/UID/flags headers.
// Idempotent: skips if the target already exists (spec §4.C, §5).
func (imp *Importer) archiveEML(msg *mailparse.ImportableMessage) error {
	if msg.MessageID == "" {
		return nil
	}
	dir := filepath.Join(imp.cfg.EMLBackupDir, msg.SourceFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, sanitizeMessageIDForPath(msg.MessageID)+".eml")

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "X-Meremail-Folder: %s\r\n", msg.SourceFolder)
	fmt.Fprintf(&b, "X-Meremail-Uid: %d\r\n", msg.UID)
	fmt.Fprintf(&b, "X-Meremail-Flags: %s\r\n", strings.Join(msg.Flags, " "))
	b.Write(msg.Raw)

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
