package index

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "kdoc-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const lemonDoc = `=== KDOC:v1 ===
[DOC_ID]
lemon_oil
[DOC_TYPE]
Product
[TITLE]
Lemon essential oil
[ALIASES]
citrus oil | lemon extract
[KEYWORDS]
aroma, relax
[SUMMARY]
Cold-pressed oil from lemon peel.
[CONTENT]
- 10ml bottle
- Store away from sunlight
[LAST_UPDATED]
2026-02-08
=== END_KDOC ===`

const shippingDoc = `=== KDOC:v1 ===
[DOC_TYPE]
faq
[TITLE]
Shipping questions
[CONTENT]
Orders ship in two days. Lemon oil ships separately.
=== END_KDOC ===`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM images`).Scan(&count); err != nil {
		t.Fatalf("images table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{Name: "hello.txt", Title: "Hello", Checksum: "abc123", UpdatedAt: time.Now()}
	if err := db.UpsertDocument(row, "hello"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.txt")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	row.Checksum = "def456"
	if err := db.UpsertDocument(row, "hello again"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if cs, _ := db.GetChecksum("hello.txt"); cs != "def456" {
		t.Errorf("checksum after update = %q", cs)
	}
}

func TestGetChecksum_Missing(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nope.txt")
	if err != nil || cs != "" {
		t.Errorf("got %q, %v", cs, err)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetDocument("nope.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListDocuments_NewestFirst(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertDocument(DocumentRow{Name: "old.txt", Checksum: "1", UpdatedAt: base}, "a")
	_ = db.UpsertDocument(DocumentRow{Name: "new.txt", Checksum: "2", UpdatedAt: base.Add(time.Hour)}, "b")

	rows, err := db.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "new.txt" || rows[1].Name != "old.txt" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestDeleteAllDocuments_KeepsImages(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Name: "a.txt", Checksum: "1"}, "a")
	_ = db.UpsertDocument(DocumentRow{Name: "b.txt", Checksum: "2"}, "b")
	_ = db.InsertImage(models.Image{ID: "img-1", DocName: "a.txt", FileName: "a.png", MimeType: "image/png", Bytes: 3})

	n, err := db.DeleteAllDocuments()
	if err != nil {
		t.Fatalf("DeleteAllDocuments: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	docs, images, err := db.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if docs != 0 || images != 1 {
		t.Errorf("counts = %d docs, %d images", docs, images)
	}
}

func TestImages_CRUDAndMove(t *testing.T) {
	db := testDB(t)
	caption := "front label"
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_ = db.InsertImage(models.Image{ID: "b", DocName: "a.txt", FileName: "2.png", MimeType: "image/png", Bytes: 10, CreatedAt: base.Add(time.Minute)})
	if err := db.InsertImage(models.Image{ID: "a", DocName: "a.txt", FileName: "1.jpg", MimeType: "image/jpeg", Bytes: 5, Caption: &caption, CreatedAt: base}); err != nil {
		t.Fatalf("InsertImage: %v", err)
	}

	list, err := db.ListImages("a.txt")
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Caption == nil || *list[0].Caption != caption || list[1].Caption != nil {
		t.Errorf("captions = %v, %v", list[0].Caption, list[1].Caption)
	}

	moved, err := db.MoveImages("a.txt", "b.txt")
	if err != nil || moved != 2 {
		t.Fatalf("MoveImages = %d, %v", moved, err)
	}
	if list, _ := db.ListImages("a.txt"); len(list) != 0 {
		t.Errorf("old owner still has %d images", len(list))
	}
	img, err := db.GetImage("a")
	if err != nil || img.DocName != "b.txt" {
		t.Fatalf("GetImage = %+v, %v", img, err)
	}

	if err := db.DeleteImage("a"); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if err := db.DeleteImage("a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, err := db.GetImage("a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetImage err = %v", err)
	}
}

func TestRow_DerivesFieldsFromKDOC(t *testing.T) {
	r := Row("lemon.txt", []byte(lemonDoc), time.Now())
	if r.Title != "Lemon essential oil" || r.DocType != "product" {
		t.Errorf("title %q, type %q", r.Title, r.DocType)
	}
	if r.Snippet != "Cold-pressed oil from lemon peel." {
		t.Errorf("snippet = %q", r.Snippet)
	}
	if r.Characters != len([]rune(lemonDoc)) || r.Checksum == "" {
		t.Errorf("characters %d, checksum %q", r.Characters, r.Checksum)
	}
}

func TestRow_PlainText(t *testing.T) {
	text := strings.Repeat("word ", 100)
	r := Row("notes.txt", []byte(text), time.Now())
	if r.Title != "" || r.DocType != "" {
		t.Errorf("title %q, type %q", r.Title, r.DocType)
	}
	if !strings.HasSuffix(r.Snippet, "…") || len([]rune(r.Snippet)) != snippetRunes+1 {
		t.Errorf("snippet = %q", r.Snippet)
	}
}

func TestSearch_RanksByFieldWeight(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "lemon.txt", []byte(lemonDoc), time.Now())
	_ = IndexDocument(db, "shipping.txt", []byte(shippingDoc), time.Now())

	results, err := db.Search("lemon", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	top := results[0]
	if top.Name != "lemon.txt" || top.Title != "Lemon essential oil" || top.DocType != "product" {
		t.Errorf("top = %+v", top)
	}
	// NAME 2 + DOC_ID 0.5 + TITLE 3 + ALIASES 3 + SUMMARY 1.5
	if top.Score != 10 {
		t.Errorf("top score = %v", top.Score)
	}
	if strings.Join(top.FieldHits, ",") != "NAME,DOC_ID,TITLE,ALIASES,SUMMARY" {
		t.Errorf("field hits = %v", top.FieldHits)
	}
	if results[1].Score != 1 || results[1].FieldHits[0] != "CONTENT" {
		t.Errorf("second = %+v", results[1])
	}
	if !strings.Contains(strings.ToLower(results[1].Snippet), "lemon oil") {
		t.Errorf("snippet = %q", results[1].Snippet)
	}
}

func TestSearch_NoTermsOrNoMatch(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "lemon.txt", []byte(lemonDoc), time.Now())

	for _, q := range []string{"", "  ,; ", "durian"} {
		results, err := db.Search(q, 5)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(%q) = %+v", q, results)
		}
	}
}

func TestSearch_TopKAndTieBreak(t *testing.T) {
	db := testDB(t)
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		_ = IndexDocument(db, name, []byte("shared words"), time.Now())
	}
	results, err := db.Search("shared", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Name != "a.txt" || results[1].Name != "b.txt" {
		t.Errorf("results = %+v", results)
	}
}

func TestClampTopK(t *testing.T) {
	cases := map[int]int{0: DefaultTopK, -3: 1, 1: 1, 7: 7, 10: 10, 50: 10}
	for in, want := range cases {
		if got := ClampTopK(in); got != want {
			t.Errorf("ClampTopK(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTerms(t *testing.T) {
	got := Terms("Dầu  chanh, DẦU; lemon_oil")
	if strings.Join(got, "|") != "dầu|chanh|lemon_oil" {
		t.Errorf("terms = %v", got)
	}
}

func TestSnippetAround(t *testing.T) {
	text := strings.Repeat("a ", 100) + "needle" + strings.Repeat(" b", 100)
	s := snippetAround(text, "needle")
	if !strings.HasPrefix(s, "…") || !strings.HasSuffix(s, "…") || !strings.Contains(s, "needle") {
		t.Errorf("snippet = %q", s)
	}
	if got := snippetAround("short text", "short"); got != "short text" {
		t.Errorf("snippet = %q", got)
	}
}
