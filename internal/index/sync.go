package index

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/kdoc/internal/checksum"
	"github.com/starford/kdoc/internal/kdoc"
	"github.com/starford/kdoc/internal/storage"
)

const snippetRunes = 160

// Sync walks the document directory and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Name] = struct{}{}

		if checksums[m.Name] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Name)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("name", m.Name), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m.Name, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("name", m.Name), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("name", m.Name))
		}
	}

	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if err := db.DeleteDocument(name); err != nil {
				logger.Warn("sync: delete failed", slog.String("name", name), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("name", name))
			}
		}
	}

	return nil
}

// IndexDocument derives the list fields of a document and upserts it.
func IndexDocument(db DocumentIndex, name string, data []byte, updatedAt time.Time) error {
	return db.UpsertDocument(Row(name, data, updatedAt), string(data))
}

// Row builds the index row for a document. Title and type come from the KDOC
// sections when the content parses; the snippet is SUMMARY or the start of
// the content.
func Row(name string, data []byte, updatedAt time.Time) DocumentRow {
	content := string(data)
	row := DocumentRow{
		Name:       name,
		Checksum:   checksum.Sum(data),
		Characters: utf8.RuneCountInString(content),
		UpdatedAt:  updatedAt,
	}
	body := content
	if sections, ok := kdoc.Parse(content); ok {
		row.Title = strings.TrimSpace(sections.Value(kdoc.KeyTitle))
		row.DocType = strings.ToLower(strings.TrimSpace(sections.Value(kdoc.KeyDocType)))
		if s := strings.TrimSpace(sections.Value(kdoc.KeySummary)); s != "" {
			body = s
		} else if c := sections.Value(kdoc.KeyContent); strings.TrimSpace(c) != "" {
			body = c
		}
	}
	row.Snippet = Snippet(body)
	return row
}

// Snippet collapses whitespace and truncates to the list snippet length.
func Snippet(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= snippetRunes {
		return s
	}
	return string([]rune(s)[:snippetRunes]) + "…"
}
