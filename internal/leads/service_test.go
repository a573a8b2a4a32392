package leads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/shared"
)

type stubLeadsRepo struct {
	items map[int64]*Lead
	next  int64
}

func newStubLeadsRepo() *stubLeadsRepo {
	return &stubLeadsRepo{items: make(map[int64]*Lead)}
}

func (s *stubLeadsRepo) List(_ context.Context, _ Filter) ([]Lead, int, error) {
	var out []Lead
	for _, l := range s.items {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (s *stubLeadsRepo) Get(_ context.Context, id int64) (*Lead, error) {
	l, ok := s.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (s *stubLeadsRepo) Create(_ context.Context, input Input) (*Lead, error) {
	s.next++
	l := &Lead{ID: s.next, Name: input.Name, Phone: input.Phone, Stage: StageNew}
	s.items[l.ID] = l
	copied := *l
	return &copied, nil
}

func (s *stubLeadsRepo) Update(_ context.Context, id int64, input Input) (*Lead, error) {
	l, ok := s.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	l.Name = input.Name
	copied := *l
	return &copied, nil
}

func (s *stubLeadsRepo) SetStage(_ context.Context, id int64, stage string) error {
	l, ok := s.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	l.Stage = stage
	return nil
}

func (s *stubLeadsRepo) Assign(_ context.Context, id int64, agentID *int64) error {
	l, ok := s.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	l.AssignedTo = agentID
	return nil
}

func (s *stubLeadsRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *stubLeadsRepo) CountByStage(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, l := range s.items {
		counts[l.Stage]++
	}
	return counts, nil
}

type notifierSpy struct {
	calls [][2]int64
}

func (n *notifierSpy) LeadAssigned(_ context.Context, leadID, agentID int64) error {
	n.calls = append(n.calls, [2]int64{leadID, agentID})
	return nil
}

func TestPipelineAdvances(t *testing.T) {
	repo := newStubLeadsRepo()
	svc := NewService(repo, nil, nil, nil)

	l, err := svc.Create(context.Background(), 1, Input{Name: "خالد", Phone: "+966500000001"})
	require.NoError(t, err)
	assert.Equal(t, StageNew, l.Stage)

	require.NoError(t, svc.Advance(context.Background(), 1, l.ID, StageContacted))
	require.NoError(t, svc.Advance(context.Background(), 1, l.ID, StageQualified))
	require.NoError(t, svc.Advance(context.Background(), 1, l.ID, StageWon))

	// Won is terminal.
	err = svc.Advance(context.Background(), 1, l.ID, StageContacted)
	assert.Error(t, err)
	assert.Equal(t, StageWon, repo.items[l.ID].Stage)
}

func TestPipelineCannotSkipStages(t *testing.T) {
	repo := newStubLeadsRepo()
	svc := NewService(repo, nil, nil, nil)

	l, err := svc.Create(context.Background(), 1, Input{Name: "سارة", Phone: "+966500000002"})
	require.NoError(t, err)

	err = svc.Advance(context.Background(), 1, l.ID, StageWon)
	assert.Error(t, err)
	assert.Equal(t, StageNew, repo.items[l.ID].Stage)

	// Any stage may be lost except terminal ones.
	require.NoError(t, svc.Advance(context.Background(), 1, l.ID, StageLost))
	assert.Error(t, svc.Advance(context.Background(), 1, l.ID, StageContacted))
}

func TestAssignTriggersNotification(t *testing.T) {
	repo := newStubLeadsRepo()
	spy := &notifierSpy{}
	svc := NewService(repo, nil, spy, nil)

	l, err := svc.Create(context.Background(), 1, Input{Name: "عمر", Phone: "+966500000003"})
	require.NoError(t, err)

	agent := int64(7)
	require.NoError(t, svc.Assign(context.Background(), 1, l.ID, &agent))
	require.Len(t, spy.calls, 1)
	assert.Equal(t, [2]int64{l.ID, 7}, spy.calls[0])

	// Unassigning must not notify.
	require.NoError(t, svc.Assign(context.Background(), 1, l.ID, nil))
	assert.Len(t, spy.calls, 1)
}
