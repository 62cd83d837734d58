package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/models"
)

// DocumentRow represents a row in the documents table, without content.
type DocumentRow struct {
	Name       string
	Title      string
	DocType    string
	Checksum   string
	Characters int
	Snippet    string
	UpdatedAt  time.Time
}

// Summary converts the row to its API form.
func (r DocumentRow) Summary() models.DocumentSummary {
	return models.DocumentSummary{
		Name:       r.Name,
		Title:      r.Title,
		DocType:    r.DocType,
		Characters: r.Characters,
		Snippet:    r.Snippet,
		UpdatedAt:  r.UpdatedAt,
	}
}

// UpsertDocument inserts or replaces a document row.
func (db *DB) UpsertDocument(r DocumentRow, content string) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO documents (name, title, doc_type, checksum, characters, snippet, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			title      = excluded.title,
			doc_type   = excluded.doc_type,
			checksum   = excluded.checksum,
			characters = excluded.characters,
			snippet    = excluded.snippet,
			content    = excluded.content,
			updated_at = excluded.updated_at
	`, r.Name, r.Title, r.DocType, r.Checksum, r.Characters, r.Snippet, content, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}
	return nil
}

// DeleteDocument removes a document row. Its images are left in place.
func (db *DB) DeleteDocument(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return nil
}

// DeleteAllDocuments removes every document row and reports how many were removed.
func (db *DB) DeleteAllDocuments() (int, error) {
	res, err := db.conn.Exec(`DELETE FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("index: delete all documents: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const rowColumns = `name, title, doc_type, checksum, characters, snippet, updated_at`

func scanRow(sc interface{ Scan(...any) error }) (DocumentRow, error) {
	var r DocumentRow
	err := sc.Scan(&r.Name, &r.Title, &r.DocType, &r.Checksum, &r.Characters, &r.Snippet, &r.UpdatedAt)
	return r, err
}

// GetDocument returns the row for name or apperr.ErrNotFound.
func (db *DB) GetDocument(name string) (*DocumentRow, error) {
	r, err := scanRow(db.conn.QueryRow(`SELECT `+rowColumns+` FROM documents WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &r, nil
}

// ListDocuments returns every document row, most recently updated first.
func (db *DB) ListDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`SELECT ` + rowColumns + ` FROM documents ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()
	out := []DocumentRow{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChecksums returns name → checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// Counts returns the number of documents and images.
func (db *DB) Counts() (int, int, error) {
	var docs, images int
	err := db.conn.QueryRow(`SELECT (SELECT count(*) FROM documents), (SELECT count(*) FROM images)`).Scan(&docs, &images)
	if err != nil {
		return 0, 0, fmt.Errorf("index: counts: %w", err)
	}
	return docs, images, nil
}

// InsertImage records image metadata.
func (db *DB) InsertImage(img models.Image) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO images (id, doc_name, file_name, mime_type, bytes, caption, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, img.ID, img.DocName, img.FileName, img.MimeType, img.Bytes, img.Caption, img.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: insert image: %w", err)
	}
	return nil
}

const imageColumns = `id, doc_name, file_name, mime_type, bytes, caption, created_at`

func scanImage(sc interface{ Scan(...any) error }) (models.Image, error) {
	var img models.Image
	var caption sql.NullString
	err := sc.Scan(&img.ID, &img.DocName, &img.FileName, &img.MimeType, &img.Bytes, &caption, &img.CreatedAt)
	if caption.Valid {
		img.Caption = &caption.String
	}
	return img, err
}

// GetImage returns image metadata or apperr.ErrNotFound.
func (db *DB) GetImage(id string) (*models.Image, error) {
	img, err := scanImage(db.conn.QueryRow(`SELECT `+imageColumns+` FROM images WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: image %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get image: %w", err)
	}
	return &img, nil
}

// ListImages returns the images of a document, oldest first.
func (db *DB) ListImages(docName string) ([]models.Image, error) {
	rows, err := db.conn.Query(`SELECT `+imageColumns+` FROM images WHERE doc_name = ? ORDER BY created_at ASC, id ASC`, docName)
	if err != nil {
		return nil, fmt.Errorf("index: list images: %w", err)
	}
	defer rows.Close()
	out := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// DeleteImage removes image metadata or returns apperr.ErrNotFound.
func (db *DB) DeleteImage(id string) error {
	res, err := db.conn.Exec(`DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: image %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// MoveImages reassigns every image of oldDoc to newDoc.
func (db *DB) MoveImages(oldDoc, newDoc string) (int, error) {
	res, err := db.conn.Exec(`UPDATE images SET doc_name = ? WHERE doc_name = ?`, newDoc, oldDoc)
	if err != nil {
		return 0, fmt.Errorf("index: move images: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
