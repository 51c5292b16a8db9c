package imapingest

import (
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/jcgurango/meremail/internal/importer"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/mailparse"
)

// Importer is the subset of *importer.Importer the ingestion loops need
// (spec §4.E "Both loops share the Parser and Importer").
type Importer interface {
	Import(msg *mailparse.ImportableMessage, folderID *uint) (importer.Result, error)
}

func flagStrings(flags []string) []string {
	out := make([]string, len(flags))
	copy(out, flags)
	return out
}

// fetchAndImport fetches the messages in seqset, feeding each through
// Parse → Import in the order IMAP returns them (spec §4.E "Ordering
// guarantees").
func fetchAndImport(c *client.Client, folder string, seqset *imap.SeqSet, imp Importer, log logging.Logger) error {
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchFlags, imap.FetchUid}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			log.Error("imapingest: read message body failed", err)
			continue
		}

		parsed, err := mailparse.Parse(raw, folder, msg.Uid, flagStrings(msg.Flags))
		if err != nil {
			log.Error("imapingest: parse failed, skipping message", err)
			continue
		}

		if _, err := imp.Import(parsed, nil); err != nil {
			log.Error("imapingest: import failed", err)
		}
	}

	return <-done
}

func fetchSince(c *client.Client, folder string, since time.Time, imp Importer, log logging.Logger) error {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	return fetchAndImport(c, folder, seqset, imp, log)
}

func fetchRange(c *client.Client, folder string, from, to uint32, imp Importer, log logging.Logger) error {
	if to < from {
		return nil
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, to)
	return fetchAndImport(c, folder, seqset, imp, log)
}
