package bookmark

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a test double for the association store
type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) Exists(ctx context.Context, userID, postID int64) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Add(ctx context.Context, userID, postID int64) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Remove(ctx context.Context, userID, postID int64) (int64, error) {
	args := m.Called(ctx, userID, postID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountForPost(ctx context.Context, postID int64) (int64, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListForUser(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type pair struct{ user, post int64 }

// memRepository behaves like the unique-indexed table
type memRepository struct {
	mu   sync.Mutex
	rows []pair
}

var _ Repository = (*memRepository)(nil)

func (r *memRepository) count(p pair) int {
	n := 0
	for _, row := range r.rows {
		if row == p {
			n++
		}
	}
	return n
}

func (r *memRepository) Exists(_ context.Context, userID, postID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count(pair{userID, postID}) > 0, nil
}

func (r *memRepository) Add(_ context.Context, userID, postID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := pair{userID, postID}
	if r.count(p) > 0 {
		return false, nil
	}
	r.rows = append(r.rows, p)
	return true, nil
}

func (r *memRepository) Remove(_ context.Context, userID, postID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := pair{userID, postID}
	kept := r.rows[:0]
	var removed int64
	for _, row := range r.rows {
		if row == p {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

func (r *memRepository) CountForPost(_ context.Context, postID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.post == postID {
			n++
		}
	}
	return n, nil
}

func (r *memRepository) ListForUser(_ context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []int64{}
	for _, row := range r.rows {
		if row.user == userID {
			ids = append(ids, row.post)
		}
	}
	return ids, nil
}

// Insert writes a row without any uniqueness check
func (r *memRepository) Insert(userID, postID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, pair{userID, postID})
}

func (r *memRepository) Rows(userID, postID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count(pair{userID, postID})
}
