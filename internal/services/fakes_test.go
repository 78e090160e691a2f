package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/utils"
)

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	creates int
}

func newMemUsers() *memUsers { return &memUsers{byEmail: map[string]*models.User{}} }

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if existing, ok := m.byEmail[u.Email]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *u
	m.byEmail[u.Email] = &cp
	return u, nil
}

type memInterviews struct {
	rows  map[string]models.Interview
	gets  int
	order []string
}

func newMemInterviews() *memInterviews { return &memInterviews{rows: map[string]models.Interview{}} }

func (m *memInterviews) Create(_ context.Context, iv *models.Interview) error {
	m.rows[iv.ID] = *iv
	m.order = append(m.order, iv.ID)
	return nil
}

func (m *memInterviews) GetByID(_ context.Context, id string) (*models.Interview, error) {
	m.gets++
	row, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &row, nil
}

func (m *memInterviews) ListByUser(_ context.Context, email string, limit int) ([]models.Interview, error) {
	var out []models.Interview
	for i := len(m.order) - 1; i >= 0; i-- {
		row := m.rows[m.order[i]]
		if row.UserEmail == email {
			out = append(out, row)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type memCache struct {
	data map[string][]byte
	ttl  map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.ttl[key] = ttl
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type scriptedLLM struct {
	chunks []string
	err    error
	prompt string
}

func (s *scriptedLLM) StreamAnswer(_ context.Context, prompt string) (<-chan string, <-chan error) {
	s.prompt = prompt
	out := make(chan string, len(s.chunks))
	errs := make(chan error, 1)
	for _, c := range s.chunks {
		out <- c
	}
	if s.err != nil {
		errs <- s.err
	}
	close(out)
	close(errs)
	return out, errs
}

func (s *scriptedLLM) Close() error { return nil }

type memCalls struct {
	rows map[string]models.CallRecord
}

func newMemCalls() *memCalls { return &memCalls{rows: map[string]models.CallRecord{}} }

func (m *memCalls) Create(_ context.Context, c *models.CallRecord) error {
	if _, ok := m.rows[c.CallID]; ok {
		return utils.ErrConflict
	}
	m.rows[c.CallID] = *c
	return nil
}

func (m *memCalls) GetByCallID(_ context.Context, callID string) (*models.CallRecord, error) {
	row, ok := m.rows[callID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &row, nil
}

func (m *memCalls) End(_ context.Context, callID string, endedAt time.Time, dur int64, reason, errMsg string) error {
	row, ok := m.rows[callID]
	if !ok {
		return utils.ErrNotFound
	}
	row.Status = "ended"
	row.EndedAt = &endedAt
	row.DurationSeconds = dur
	row.EndReason = reason
	row.Error = errMsg
	m.rows[callID] = row
	return nil
}

func (m *memCalls) ListByInterview(_ context.Context, interviewID string, limit int64) ([]models.CallRecord, error) {
	var out []models.CallRecord
	for _, r := range m.rows {
		if r.InterviewID == interviewID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
