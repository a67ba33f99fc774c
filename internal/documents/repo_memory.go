package documents

import (
	"cmp"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"study-backend/internal/shared/entity"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]*memoryDoc // id -> document
	seq  uint64
	now  func() time.Time
}

type memoryDoc struct {
	doc Document
	seq uint64
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]*memoryDoc),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new document, assigning its id and dates.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := validateNew(doc); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := r.data[doc.ID]; exists {
		return Document{}, ErrInvalidInput
	}
	now := r.now()
	doc.CreatedDate = now
	doc.UpdatedDate = now
	r.seq++
	r.data[doc.ID] = &memoryDoc{doc: doc, seq: r.seq}
	return doc, nil
}

// GetByID returns a document owned by ownerID.
func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.data[id]
	if !ok || entry.doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	return entry.doc, nil
}

// List returns the owner's documents filtered and ordered by q.
func (r *MemoryRepo) List(ctx context.Context, ownerID string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]*memoryDoc, 0, len(r.data))
	for _, entry := range r.data {
		if entry.doc.OwnerID != ownerID {
			continue
		}
		if q.Status != "" && entry.doc.Status != q.Status {
			continue
		}
		cp := *entry
		entries = append(entries, &cp)
	}
	r.mu.RUnlock()

	s := q.Sort.OrElse(entity.NewestFirst)
	sort.SliceStable(entries, func(i, j int) bool {
		c := compareDocs(entries[i].doc, entries[j].doc, s.Field)
		if c == 0 {
			// Insertion order breaks ties so equal timestamps stay deterministic.
			c = cmp.Compare(entries[i].seq, entries[j].seq)
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})

	out := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		out = append(out, entry.doc)
	}
	return out, nil
}

// Finalize stores the extraction outcome of a processing document.
func (r *MemoryRepo) Finalize(ctx context.Context, ownerID, id, text string, status Status) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !status.Terminal() {
		return Document{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.data[id]
	if !ok || entry.doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	if entry.doc.Status != StatusProcessing {
		return Document{}, ErrAlreadyFinal
	}
	entry.doc.ExtractedText = text
	entry.doc.Status = status
	entry.doc.UpdatedDate = r.now()
	return entry.doc, nil
}

// Rename changes a document title.
func (r *MemoryRepo) Rename(ctx context.Context, ownerID, id, title string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.data[id]
	if !ok || entry.doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	entry.doc.Title = title
	entry.doc.UpdatedDate = r.now()
	return entry.doc, nil
}

// Delete removes a document. Unknown ids are ignored.
func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.data[id]; ok && entry.doc.OwnerID == ownerID {
		delete(r.data, id)
	}
	return nil
}

// Count returns the number of the owner's documents, optionally by status.
func (r *MemoryRepo) Count(ctx context.Context, ownerID string, status Status) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, entry := range r.data {
		if entry.doc.OwnerID == ownerID && (status == "" || entry.doc.Status == status) {
			n++
		}
	}
	return n, nil
}

// ClaimGuest reassigns documents owned by a guest to an authenticated owner.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.data {
		if entry.doc.OwnerID == guestOwnerID {
			entry.doc.OwnerID = ownerID
			n++
		}
	}
	return n, nil
}

func validateNew(doc Document) error {
	if strings.TrimSpace(doc.OwnerID) == "" || strings.TrimSpace(doc.Title) == "" || doc.OriginalFileURL == "" {
		return ErrInvalidInput
	}
	if !doc.Status.Valid() {
		return ErrInvalidInput
	}
	switch doc.FileType {
	case FileTypePDF, FileTypeImage, FileTypeDoc:
	default:
		return ErrInvalidInput
	}
	return nil
}

func compareDocs(a, b Document, field string) int {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "updated_date":
		return a.UpdatedDate.Compare(b.UpdatedDate)
	default:
		return a.CreatedDate.Compare(b.CreatedDate)
	}
}

var _ Repo = (*MemoryRepo)(nil)
