package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func testServer(t *testing.T, handler http.HandlerFunc) (*Client, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rec := &sleepRecorder{}
	policy := DefaultRetry
	policy.Sleep = rec.sleep
	return New(srv.URL, WithToken("tok"), WithRetryPolicy(policy)), rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListDocuments(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/documents", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, 200, map[string]any{
			"ok": true,
			"documents": []map[string]any{
				{"name": "a.txt", "updated_at": "2026-02-08T10:00:00Z", "characters": 12, "snippet": "hi"},
				{"name": "b.txt", "updated_at": "2026-02-07 09:00:00", "characters": 3},
			},
		})
	})

	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Name)
	assert.Equal(t, 12, docs[0].Characters)
	assert.Equal(t, 2026, docs[1].UpdatedAt.Year())
}

func TestRetry_OKFalseIsRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, rec := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, 200, map[string]any{"ok": false, "error": "index busy"})
			return
		}
		writeJSON(w, 200, map[string]any{"ok": true, "document": map[string]any{"name": "a.txt", "content": "x"}})
	})

	doc, err := c.GetDocument(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Content)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, rec.waits)
}

func TestRetry_ExhaustedReportsLastError(t *testing.T) {
	var calls atomic.Int32
	c, rec := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 500, map[string]any{"ok": false, "error": "disk full"})
	})

	_, err := c.SaveDocument(context.Background(), "a.txt", "", "text")
	require.Error(t, err)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "disk full", apiErr.Message)
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, 2, apiErr.Attempts)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, rec.waits, 1)
}

func TestRetry_NegativeRetriesMakeOneAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 500, map[string]any{"ok": false, "error": "disk full"})
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithRetryPolicy(RetryPolicy{Retries: -1}))

	var err error
	require.NotPanics(t, func() { _, err = c.ListDocuments(context.Background()) })
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "disk full", apiErr.Message)
	assert.Equal(t, 1, apiErr.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_DelaysGrowLinearly(t *testing.T) {
	p := RetryPolicy{Retries: 3, BaseDelay: 250 * time.Millisecond}
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 250*time.Millisecond, p.Delay(1))
	assert.Equal(t, 500*time.Millisecond, p.Delay(2))
	assert.Equal(t, 750*time.Millisecond, p.Delay(3))
}

func TestErrorMessage_FallsBackToStatus(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})
	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP 502", err.Error())
}

func TestErrorMessage_Detail(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, map[string]any{"detail": "name required"})
	})
	_, err := c.ListDocuments(context.Background())
	require.Error(t, err)
	assert.Equal(t, "name required", err.Error())
}

func TestDeleteAllDocuments_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c, rec := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		calls.Add(1)
		writeJSON(w, 500, map[string]any{"ok": false, "error": "nope"})
	})
	_, err := c.DeleteAllDocuments(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.waits)
}

func TestContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, map[string]any{"error": "down"})
	}))
	t.Cleanup(srv.Close)
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Retries: 5, BaseDelay: time.Hour, Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}}
	c := New(srv.URL, WithRetryPolicy(policy))

	_, err := c.ListDocuments(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSaveDocument_Payload(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents/text", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "new.txt", "old_name": "old.txt", "text": "T"}, body)
		writeJSON(w, 200, map[string]any{"ok": true, "document": map[string]any{"name": "new.txt", "content": "T", "characters": 1}})
	})
	doc, err := c.SaveDocument(context.Background(), "new.txt", "old.txt", "T")
	require.NoError(t, err)
	assert.Equal(t, "new.txt", doc.Name)
}

func TestSearch_ClampsTopK(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(10), body["top_k"])
		writeJSON(w, 200, map[string]any{"ok": true, "results": []map[string]any{
			{"name": "a.txt", "title": "A", "doc_type": "faq", "score": 4.5, "field_hits": []string{"TITLE"}},
		}})
	})
	res, err := c.Search(context.Background(), "lemon", 50)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, []string{"TITLE"}, res[0].FieldHits)

	assert.Equal(t, 5, ClampTopK(0))
	assert.Equal(t, 1, ClampTopK(-3))
	assert.Equal(t, 7, ClampTopK(7))
}

func TestUploadImage_Multipart(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a.txt", r.FormValue("name"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "pic.png", hdr.Filename)
		assert.Equal(t, []byte{1, 2, 3}, data)
		writeJSON(w, 200, map[string]any{"ok": true, "image": map[string]any{"id": "img1", "doc_name": "a.txt"}})
	})
	img, err := c.UploadImage(context.Background(), ImageUpload{DocName: "a.txt", FileName: "pic.png", MimeType: "image/png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "img1", img.ID)
}

func TestUploadImage_FallsBackToJSON(t *testing.T) {
	var sawJSON atomic.Bool
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			writeJSON(w, 400, map[string]any{"ok": false, "error": "multipart unsupported"})
			return
		}
		sawJSON.Store(true)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img")), body["data_base64"])
		assert.Equal(t, "image", body["file_name"])
		writeJSON(w, 200, map[string]any{"ok": true, "image": map[string]any{"id": "img2"}})
	})
	img, err := c.UploadImage(context.Background(), ImageUpload{DocName: "a.txt", MimeType: "image/png", Data: []byte("img")})
	require.NoError(t, err)
	assert.True(t, sawJSON.Load())
	assert.Equal(t, "img2", img.ID)
}

func TestImageContent_Raw(t *testing.T) {
	c, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "img1", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	data, err := c.ImageContent(context.Background(), "img1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}

func TestTimestamp_Decode(t *testing.T) {
	var v struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
		D Timestamp `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2026-02-08","b":1700000000,"c":null,"d":"garbage"}`), &v))
	assert.Equal(t, 8, v.A.Day())
	assert.Equal(t, int64(1700000000), v.B.Unix())
	assert.True(t, v.C.IsZero())
	assert.True(t, v.D.IsZero())

	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(out))
}
