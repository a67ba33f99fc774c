package questions

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
	data map[string]*memoryQuestion
	seq  uint64
	now  func() time.Time
}

type memoryQuestion struct {
	q   Question
	seq uint64
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]*memoryQuestion),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, q Question) (Question, error) {
	if err := ctx.Err(); err != nil {
		return Question{}, err
	}
	if err := validateNew(q); err != nil {
		return Question{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if _, exists := r.data[q.ID]; exists {
		return Question{}, ErrInvalidInput
	}
	q.CreatedDate = r.now()
	q.DocumentIDs = append([]string{}, q.DocumentIDs...)
	r.seq++
	r.data[q.ID] = &memoryQuestion{q: q, seq: r.seq}
	return cloneQuestion(q), nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (Question, error) {
	if err := ctx.Err(); err != nil {
		return Question{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.data[id]
	if !ok || entry.q.OwnerID != ownerID {
		return Question{}, ErrNotFound
	}
	return cloneQuestion(entry.q), nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string, q Query) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	r.mu.RLock()
	entries := make([]memoryQuestion, 0, len(r.data))
	for _, entry := range r.data {
		if entry.q.OwnerID != ownerID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(entry.q.QuestionText), needle) &&
			!strings.Contains(strings.ToLower(entry.q.AIAnswer), needle) {
			continue
		}
		entries = append(entries, *entry)
	}
	r.mu.RUnlock()

	s := q.Sort.OrElse(entity.NewestFirst)
	sort.SliceStable(entries, func(i, j int) bool {
		var c int
		if s.Field == "question_text" {
			c = strings.Compare(strings.ToLower(entries[i].q.QuestionText), strings.ToLower(entries[j].q.QuestionText))
		} else {
			c = entries[i].q.CreatedDate.Compare(entries[j].q.CreatedDate)
		}
		if c == 0 {
			c = cmp.Compare(entries[i].seq, entries[j].seq)
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})

	out := make([]Question, 0, len(entries))
	for _, entry := range entries {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		out = append(out, cloneQuestion(entry.q))
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.data[id]; ok && entry.q.OwnerID == ownerID {
		delete(r.data, id)
	}
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, entry := range r.data {
		if entry.q.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestOwnerID, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.data {
		if entry.q.OwnerID == guestOwnerID {
			entry.q.OwnerID = ownerID
			n++
		}
	}
	return n, nil
}

func cloneQuestion(q Question) Question {
	q.DocumentIDs = append([]string{}, q.DocumentIDs...)
	return q
}

var _ Repo = (*MemoryRepo)(nil)
