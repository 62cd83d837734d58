package docservice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/docservice"
	"github.com/starford/kdoc/internal/sse"
	"github.com/starford/kdoc/internal/testutil"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordedEvents) PublishDocumentEvent(kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+name)
}

func (r *recordedEvents) Publish(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
}

func (r *recordedEvents) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*docservice.Service, *recordedEvents) {
	t.Helper()
	ev := &recordedEvents{}
	svc, _, _ := testutil.TestService(t, docservice.Options{
		Events:        ev,
		MaxImageBytes: 1024,
		Version:       "test",
		Now:           func() time.Time { return fixedNow },
	})
	return svc, ev
}

func TestSaveAndGet(t *testing.T) {
	svc, ev := newService(t)
	ctx := context.Background()

	doc, err := svc.Save(ctx, " faq.txt ", "", "Xin chào")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.Name != "faq.txt" || doc.Characters != 8 || !doc.UpdatedAt.Equal(fixedNow) {
		t.Errorf("doc = %+v", doc)
	}

	got, err := svc.Get(ctx, "faq.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "Xin chào" || !got.UpdatedAt.Equal(fixedNow) {
		t.Errorf("got = %+v", got)
	}
	if events := ev.list(); len(events) != 1 || events[0] != "saved:faq.txt" {
		t.Errorf("events = %v", events)
	}
}

func TestSave_Rejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "../x.txt", "", "text"); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("path name err = %v", err)
	}
	if _, err := svc.Save(ctx, "a.txt", "", "  \n "); !errors.Is(err, apperr.ErrInvalidPayload) {
		t.Errorf("blank text err = %v", err)
	}
	if _, err := svc.Get(ctx, "missing.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestSave_RenameMovesImages(t *testing.T) {
	svc, ev := newService(t)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "old.txt", "", "body"); err != nil {
		t.Fatal(err)
	}
	img, err := svc.AddImage(ctx, docservice.ImageUpload{DocName: "old.txt", FileName: "dir/label.png", Data: testutil.PNG})
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	if _, err := svc.Save(ctx, "new.txt", "old.txt", "body v2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := svc.Get(ctx, "old.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old doc still readable: %v", err)
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "new.txt" {
		t.Fatalf("list = %+v", list)
	}
	images, _ := svc.Images(ctx, "new.txt")
	if len(images) != 1 || images[0].ID != img.ID {
		t.Errorf("images = %+v", images)
	}
	if old, _ := svc.Images(ctx, "old.txt"); len(old) != 0 {
		t.Errorf("old images = %+v", old)
	}

	events := strings.Join(ev.list(), ",")
	if !strings.HasSuffix(events, "deleted:old.txt,saved:new.txt") {
		t.Errorf("events = %s", events)
	}
}

func TestDeleteAll_KeepsImages(t *testing.T) {
	svc, ev := newService(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, "a.txt", "", "a")
	_, _ = svc.Save(ctx, "b.txt", "", "b")
	img, err := svc.AddImage(ctx, docservice.ImageUpload{DocName: "a.txt", Data: testutil.JPEG})
	if err != nil {
		t.Fatal(err)
	}

	n, err := svc.DeleteAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Errorf("list = %+v", list)
	}
	if _, data, err := svc.ImageContent(ctx, img.ID); err != nil || len(data) != len(testutil.JPEG) {
		t.Errorf("orphan image unreadable: %v", err)
	}
	info, _ := svc.Info(ctx)
	if info.Documents != 0 || info.Images != 1 || info.Version != "test" || info.Status != "ok" {
		t.Errorf("info = %+v", info)
	}
	if events := ev.list(); events[len(events)-1] != sse.TypeDocumentsCleared {
		t.Errorf("events = %v", events)
	}
}

func TestAddImage_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, "a.txt", "", "a")

	cases := []struct {
		name string
		up   docservice.ImageUpload
		want error
	}{
		{"empty", docservice.ImageUpload{DocName: "a.txt"}, apperr.ErrInvalidPayload},
		{"too large", docservice.ImageUpload{DocName: "a.txt", Data: make([]byte, 2048)}, apperr.ErrTooLarge},
		{"not an image", docservice.ImageUpload{DocName: "a.txt", Data: []byte("plain text, not pixels")}, apperr.ErrUnsupportedMedia},
		{"unknown doc", docservice.ImageUpload{DocName: "ghost.txt", Data: testutil.PNG}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.AddImage(ctx, tc.up); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestAddImage_SniffsAndDeletes(t *testing.T) {
	svc, ev := newService(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, "a.txt", "", "a")

	img, err := svc.AddImage(ctx, docservice.ImageUpload{
		DocName:  "a.txt",
		MimeType: "image/png",
		Caption:  "  front  ",
		Data:     testutil.JPEG,
	})
	if err != nil {
		t.Fatal(err)
	}
	if img.MimeType != "image/jpeg" || img.FileName != "image" || img.Caption == nil || *img.Caption != "front" {
		t.Errorf("img = %+v", img)
	}
	if !img.CreatedAt.Equal(fixedNow) {
		t.Errorf("created = %v", img.CreatedAt)
	}

	if err := svc.DeleteImage(ctx, img.ID); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	if err := svc.DeleteImage(ctx, img.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	events := ev.list()
	if events[len(events)-1] != sse.TypeImageDeleted {
		t.Errorf("events = %v", events)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, "a.txt", "", "=== KDOC:v1 ===\n[TITLE]\nLemon oil\n=== END_KDOC ===")
	_, _ = svc.Save(ctx, "b.txt", "", "nothing relevant")

	results, err := svc.Search(ctx, "lemon", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "a.txt" || results[0].Title != "Lemon oil" {
		t.Errorf("results = %+v", results)
	}
}
