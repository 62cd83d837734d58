// Package console is the operator's editing engine. A Session threads the
// API client, organization state, draft tracking and import/export through
// every operation and reports each outcome as a Status.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/kdoc/internal/apperr"
	"github.com/starford/kdoc/internal/client"
	"github.com/starford/kdoc/internal/draft"
	"github.com/starford/kdoc/internal/kdoc"
	"github.com/starford/kdoc/internal/localstore"
	"github.com/starford/kdoc/internal/organize"
)

// ViewModeKey is the localstore key of the editor view preference.
const ViewModeKey = "view_mode.v1"

// View modes.
const (
	ViewText = "text"
	ViewKDOC = "kdoc"
)

// DefaultMaxImageBytes caps uploads when Options leaves it unset.
const DefaultMaxImageBytes int64 = 8 << 20

// Remote is the document host API the session talks to. *client.Client
// implements it.
type Remote interface {
	Info(ctx context.Context) (*client.HostInfo, error)
	ListDocuments(ctx context.Context) ([]client.DocumentSummary, error)
	GetDocument(ctx context.Context, name string) (*client.Document, error)
	SaveDocument(ctx context.Context, name, oldName, text string) (*client.Document, error)
	DeleteAllDocuments(ctx context.Context) (int, error)
	ListImages(ctx context.Context, docName string) ([]client.Image, error)
	ImageContent(ctx context.Context, id string) ([]byte, error)
	UploadImage(ctx context.Context, up client.ImageUpload) (*client.Image, error)
	ImportImage(ctx context.Context, up client.ImageUpload) (*client.Image, error)
	DeleteImage(ctx context.Context, id string) error
	Search(ctx context.Context, query string, topK int) ([]client.SearchResult, error)
}

var _ Remote = (*client.Client)(nil)

// Options configures a Session.
type Options struct {
	Notifier Notifier
	Logger   *slog.Logger
	// AutosaveDelay is the draft debounce; zero means draft.DefaultDelay.
	AutosaveDelay time.Duration
	// AfterFunc schedules autosaves; nil uses the real clock.
	AfterFunc     draft.AfterFunc
	MaxImageBytes int64
	Now           func() time.Time
}

// Session is one operator's editing session.
type Session struct {
	remote   Remote
	kv       localstore.Store
	org      *organize.Store
	tracker  *draft.Tracker
	drafts   *draft.Store
	autosave *draft.Debouncer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	maxImage int64

	mu            sync.Mutex
	selected      string
	activeFolder  string
	pendingFolder string
	name          string
	text          string
	updatedAt     time.Time
	docs          []client.DocumentSummary
	images        []client.Image
	viewMode      string
	host          client.HostInfo
	restoreTried  bool

	// gate is held shared by every mutating operation and exclusively by
	// Import. Both sides only try to take it, so a conflicting call is
	// refused rather than queued.
	gate      sync.RWMutex
	saving    atomic.Bool
	importing atomic.Bool
}

// New builds a session from durable state in kv. Corrupt records fall back
// to defaults.
func New(remote Remote, kv localstore.Store, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxImage := opts.MaxImageBytes
	if maxImage <= 0 {
		maxImage = DefaultMaxImageBytes
	}
	s := &Session{
		remote:        remote,
		kv:            kv,
		org:           organize.Load(kv, logger),
		tracker:       draft.NewTracker(),
		drafts:        draft.NewStore(kv),
		autosave:      draft.NewDebouncer(opts.AutosaveDelay, opts.AfterFunc),
		notifier:      notifier,
		logger:        logger,
		now:           now,
		maxImage:      maxImage,
		activeFolder:  organize.AllKey,
		pendingFolder: organize.DefaultFolder,
		viewMode:      ViewText,
	}
	var mode string
	if ok, err := localstore.LoadJSON(kv, ViewModeKey, &mode); err != nil {
		logger.Warn("view mode unreadable, using default", slog.String("error", err.Error()))
	} else if ok {
		s.viewMode = normalizeViewMode(mode)
	}
	return s
}

func normalizeViewMode(mode string) string {
	if strings.TrimSpace(mode) == ViewKDOC {
		return ViewKDOC
	}
	return ViewText
}

// Close writes any pending draft and stops the autosave timer.
func (s *Session) Close() {
	s.autosave.Flush()
	s.autosave.Stop()
}

func (s *Session) status(tone Tone, msg string) {
	s.notifier.Notify(Status{Tone: tone, Message: msg})
}

func (s *Session) fail(prefix string, err error) error {
	s.status(ToneWarn, prefix+": "+err.Error())
	return err
}

// enter admits a mutating operation unless an import holds the gate. Every
// successful enter must be paired with leave.
func (s *Session) enter() error {
	if !s.gate.TryRLock() {
		s.status(ToneInfo, "Import in progress, try again when it finishes.")
		return apperr.ErrImportInProgress
	}
	return nil
}

func (s *Session) leave() { s.gate.RUnlock() }

// Buffer returns the editor name and text.
func (s *Session) Buffer() (name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.text
}

// Selected returns the name of the open document, or "" for a new one.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// UpdatedAt returns the last modification time of the open document.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// ActiveFolder returns the folder filter, organize.AllKey for every document.
func (s *Session) ActiveFolder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeFolder
}

// PendingFolder returns the folder the buffer will be saved into.
func (s *Session) PendingFolder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingFolder
}

func (s *Session) ViewMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewMode
}

// Host returns the host status seen at boot.
func (s *Session) Host() client.HostInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

// Dirty reports unsaved changes in the buffer.
func (s *Session) Dirty() bool { return s.tracker.Dirty() }

// Organization exposes the folder and tag store.
func (s *Session) Organization() *organize.Store { return s.org }

// Boot restores a pending draft, reads the host status and loads the
// document list.
func (s *Session) Boot(ctx context.Context) error {
	s.tracker.MarkSaved("", "")
	restored := s.restoreDraft(ctx)

	if info, err := s.remote.Info(ctx); err != nil {
		s.logger.Warn("host info unavailable", slog.String("error", err.Error()))
	} else {
		s.mu.Lock()
		s.host = *info
		s.mu.Unlock()
	}

	if _, err := s.loadDocuments(ctx); err != nil {
		return s.fail("Could not load documents", err)
	}
	if restored {
		s.status(ToneInfo, "Local draft restored. Save it to update the host.")
		return nil
	}
	s.status(ToneInfo, "Ready.")
	return nil
}

// restoreDraft runs at most once per session.
func (s *Session) restoreDraft(ctx context.Context) bool {
	s.mu.Lock()
	if s.restoreTried {
		s.mu.Unlock()
		return false
	}
	s.restoreTried = true
	d, ok := s.drafts.Load()
	if !ok || !draft.ShouldRestore(d, s.selected, s.text) {
		s.mu.Unlock()
		return false
	}
	s.name, s.text = d.Name, d.Text
	s.mu.Unlock()

	s.tracker.ForceDirty()
	_ = s.loadImages(ctx, d.Name)
	return true
}

func (s *Session) loadDocuments(ctx context.Context) ([]client.DocumentSummary, error) {
	docs, err := s.remote.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return docs, nil
}

// Refresh reloads the document list.
func (s *Session) Refresh(ctx context.Context) ([]client.DocumentSummary, error) {
	s.status(ToneLoading, "Loading documents...")
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, s.fail("Refresh failed", err)
	}
	s.status(ToneOK, "Document list updated.")
	return docs, nil
}

// Open loads a document into the buffer. Content, folder choice and image
// list are all in place before the buffer is marked saved.
func (s *Session) Open(ctx context.Context, name string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	s.status(ToneLoading, "Loading document...")
	if err := s.open(ctx, name); err != nil {
		return s.fail("Could not read document", err)
	}
	s.status(ToneOK, "Document loaded.")
	return nil
}

func (s *Session) open(ctx context.Context, name string) error {
	doc, err := s.remote.GetDocument(ctx, name)
	if err != nil {
		return err
	}
	selected := doc.Name
	if selected == "" {
		selected = name
	}
	folder := s.org.FolderOf(selected)

	s.mu.Lock()
	s.selected = selected
	s.name = selected
	s.text = doc.Content
	s.updatedAt = doc.UpdatedAt.Time
	s.pendingFolder = folder
	s.mu.Unlock()

	_ = s.loadImages(ctx, selected)
	s.markSaved()
	return nil
}

// markSaved makes the current buffer the clean baseline and persists it as
// the draft.
func (s *Session) markSaved() {
	name, text := s.Buffer()
	s.tracker.MarkSaved(name, text)
	s.persistDraft()
}

func (s *Session) persistDraft() {
	name, text := s.Buffer()
	if err := s.drafts.Save(name, text); err != nil {
		s.logger.Warn("draft not saved", slog.String("error", err.Error()))
	}
}

// Edit replaces the buffer. A status is emitted only when the buffer turns
// dirty or clean, not on every change.
func (s *Session) Edit(name, text string) (draft.Transition, error) {
	if err := s.enter(); err != nil {
		return draft.Unchanged, err
	}
	defer s.leave()
	tr := s.edit(name, text)
	switch tr {
	case draft.BecameDirty:
		if !s.saving.Load() {
			s.status(ToneInfo, "Editing, not saved yet.")
		}
	case draft.BecameClean:
		s.status(ToneOK, "Content matches the saved version.")
	}
	return tr, nil
}

func (s *Session) edit(name, text string) draft.Transition {
	s.mu.Lock()
	s.name, s.text = name, text
	s.mu.Unlock()
	s.autosave.Schedule(s.persistDraft)
	return s.tracker.Update(name, text)
}

// Save validates the buffer and writes it to the host. Renaming the open
// document carries its folder, tags and images over to the new name. A save
// requested while another is in flight is ignored with apperr.ErrBusy.
func (s *Session) Save(ctx context.Context) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	if !s.saving.CompareAndSwap(false, true) {
		s.status(ToneInfo, "A save is already in progress.")
		return apperr.ErrBusy
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	previous := s.selected
	name := strings.TrimSpace(s.name)
	text := strings.TrimSpace(s.text)
	explicit := s.pendingFolder
	active := s.activeFolder
	s.mu.Unlock()

	if name == "" || text == "" {
		s.status(ToneWarn, "Enter a document name and content.")
		return fmt.Errorf("%w: name and content are required", apperr.ErrValidation)
	}
	if r := kdoc.Validate(text); !r.OK {
		s.status(ToneWarn, "Content is not valid KDOC v1: "+r.Summary(2))
		return fmt.Errorf("%w: %s", apperr.ErrValidation, r.Summary(0))
	}

	s.status(ToneLoading, "Saving document...")
	if _, err := s.remote.SaveDocument(ctx, name, previous, text); err != nil {
		s.tracker.ForceDirty()
		return s.fail("Save failed", err)
	}
	_, orgErr := s.org.Reassign(previous, name, explicit, active)

	s.mu.Lock()
	s.selected = name
	s.name, s.text = name, text
	s.mu.Unlock()
	s.markSaved()

	if _, err := s.loadDocuments(ctx); err != nil {
		s.logger.Warn("document list not refreshed after save", slog.String("error", err.Error()))
	}
	if err := s.open(ctx, name); err != nil {
		s.logger.Warn("document not reloaded after save", slog.String("name", name), slog.String("error", err.Error()))
	}
	if orgErr != nil {
		return s.fail("Saved, but folder and tags were not stored", orgErr)
	}
	s.status(ToneOK, "Document saved.")
	return nil
}

// New clears the buffer for a fresh document. Its folder defaults to the
// active folder.
func (s *Session) New() error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	s.mu.Lock()
	s.selected = ""
	s.name, s.text = "", ""
	s.updatedAt = time.Time{}
	s.images = nil
	s.pendingFolder = organize.DefaultFolder
	if s.activeFolder != organize.AllKey {
		s.pendingFolder = s.activeFolder
	}
	s.mu.Unlock()
	s.markSaved()
	s.status(ToneInfo, "Started a new document.")
	return nil
}

// ClearAll deletes every document on the host and drops all folder
// assignments and tags. Folders themselves are kept.
func (s *Session) ClearAll(ctx context.Context) (int, error) {
	if err := s.enter(); err != nil {
		return 0, err
	}
	defer s.leave()
	s.status(ToneLoading, "Deleting all documents...")
	n, err := s.remote.DeleteAllDocuments(ctx)
	if err != nil {
		return 0, s.fail("Delete failed", err)
	}
	orgErr := s.org.Clear()

	s.mu.Lock()
	s.docs = nil
	s.selected = ""
	s.name, s.text = "", ""
	s.updatedAt = time.Time{}
	s.images = nil
	s.pendingFolder = organize.DefaultFolder
	s.mu.Unlock()
	s.markSaved()

	if orgErr != nil {
		return n, s.fail("Documents deleted, but organization state was not stored", orgErr)
	}
	s.status(ToneOK, fmt.Sprintf("Deleted %d documents.", n))
	return n, nil
}

// InsertTemplate appends the template block for key to the buffer. A blank
// name is filled with a suggested one, except for the synonyms snippet.
func (s *Session) InsertTemplate(key string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	now := s.now()
	block, err := kdoc.Template(key, now)
	if err != nil {
		s.status(ToneWarn, fmt.Sprintf("Unknown template %q.", key))
		return err
	}
	key = strings.ToLower(strings.TrimSpace(key))
	name, text := s.Buffer()
	text = kdoc.Insert(text, block)
	if strings.TrimSpace(name) == "" && key != kdoc.SynonymsTemplate {
		name = kdoc.SuggestName(key, now)
	}
	s.edit(name, text)
	s.status(ToneInfo, "Template inserted.")
	return nil
}

// OpenFreeText loads file content into the buffer. Text without KDOC markers
// is wrapped into a skeleton with the original text as CONTENT. The file name
// becomes the document name when none is set.
func (s *Session) OpenFreeText(fileName, raw string) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	text := raw
	converted := false
	if _, ok := kdoc.Parse(raw); !ok && strings.TrimSpace(raw) != "" {
		text = kdoc.FromFreeText(raw, s.now())
		converted = true
	}
	name, _ := s.Buffer()
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSpace(fileName)
	}
	s.edit(name, text)
	if converted {
		s.status(ToneInfo, fmt.Sprintf("Converted %s into a KDOC skeleton.", fileName))
		return nil
	}
	s.status(ToneInfo, "Loaded file: "+fileName)
	return nil
}

// CanDiscard reports whether the buffer may be replaced. With unsaved
// changes the decision is left to confirm.
func (s *Session) CanDiscard(action string, confirm func(action string) bool) bool {
	if !s.tracker.Dirty() {
		return true
	}
	return confirm != nil && confirm(action)
}

// SetViewMode stores the editor view preference. Anything but "kdoc" means
// plain text.
func (s *Session) SetViewMode(mode string) error {
	mode = normalizeViewMode(mode)
	if err := s.storeViewMode(mode); err != nil {
		return s.fail("View mode not stored", err)
	}
	s.status(ToneInfo, "View mode: "+mode+".")
	return nil
}

func (s *Session) storeViewMode(mode string) error {
	s.mu.Lock()
	s.viewMode = mode
	s.mu.Unlock()
	return localstore.SaveJSON(s.kv, ViewModeKey, mode)
}
