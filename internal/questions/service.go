package questions

import (
	"context"
	"strings"
	"time"

	"study-backend/internal/shared/entity"
)

const dayLayout = "2006-01-02"

// Service reads and deletes question history.
// Questions are created by the answer pipeline.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// History lists the owner's questions.
func (s *Service) History(ctx context.Context, ownerID string, q Query) ([]Question, error) {
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Limit < 0 {
		q.Limit = 0
	}
	return s.Repo.List(ctx, ownerID, q)
}

// Get returns one question.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Question, error) {
	if ownerID == "" || strings.TrimSpace(id) == "" {
		return Question{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, id)
}

// Delete removes a question. Unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrInvalidInput
	}
	return s.Repo.Delete(ctx, ownerID, id)
}

// SortForOrder maps the history "order" parameter onto a sort.
func SortForOrder(order string) (entity.Sort, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "newest":
		return entity.NewestFirst, nil
	case "oldest":
		return entity.Sort{Field: entity.FieldCreatedDate}, nil
	default:
		return entity.Sort{}, ErrInvalidInput
	}
}

// GroupByDay buckets questions by the UTC day they were asked, keeping the
// input order both across and within days.
func GroupByDay(qs []Question) []DayGroup {
	groups := []DayGroup{}
	index := map[string]int{}
	for _, q := range qs {
		day := q.CreatedDate.In(time.UTC).Format(dayLayout)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: day})
		}
		groups[i].Questions = append(groups[i].Questions, q)
	}
	return groups
}
