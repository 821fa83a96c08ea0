package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"beachrental-backend/internal/domain"
)

type resourceRepository struct {
	st *state
}

func (r *resourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedOn, res.UpdatedOn = now, now

	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *res
	r.st.resources[res.ID] = &cp
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	res, ok := r.st.resources[id]
	if !ok {
		return nil, domain.NotFoundf("resource %s", id)
	}
	cp := *res
	return &cp, nil
}

func (r *resourceRepository) FindMatching(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []domain.Resource
	for _, res := range r.st.resources {
		if filter.Matches(res) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Size != out[j].Size {
			return out[i].Size < out[j].Size
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *resourceRepository) Update(ctx context.Context, res *domain.Resource) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.resources[res.ID]
	if !ok {
		return domain.NotFoundf("resource %s", res.ID)
	}
	cp := *res
	cp.CreatedOn = cur.CreatedOn
	cp.UpdatedOn = time.Now().UTC()
	r.st.resources[res.ID] = &cp
	return nil
}
