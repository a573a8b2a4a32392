package properties

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/shared"
)

type stubPropertiesRepo struct {
	items map[int64]*Property
	next  int64
}

func newStubPropertiesRepo() *stubPropertiesRepo {
	return &stubPropertiesRepo{items: make(map[int64]*Property)}
}

func (s *stubPropertiesRepo) List(_ context.Context, _ Filter) ([]Property, int, error) {
	var out []Property
	for _, p := range s.items {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (s *stubPropertiesRepo) Get(_ context.Context, id int64) (*Property, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *stubPropertiesRepo) Create(_ context.Context, input Input) (*Property, error) {
	s.next++
	p := &Property{ID: s.next, Title: input.Title, Type: input.Type, Status: StatusAvailable,
		Price: input.Price, City: input.City}
	s.items[p.ID] = p
	copied := *p
	return &copied, nil
}

func (s *stubPropertiesRepo) Update(_ context.Context, id int64, input Input) (*Property, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	p.Title = input.Title
	p.Price = input.Price
	copied := *p
	return &copied, nil
}

func (s *stubPropertiesRepo) SetStatus(_ context.Context, id int64, status string) error {
	p, ok := s.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Status = status
	return nil
}

func (s *stubPropertiesRepo) SetPublished(_ context.Context, id int64, published bool) error {
	p, ok := s.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Published = published
	return nil
}

func (s *stubPropertiesRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type auditRecorder struct {
	logs []shared.AuditLog
}

func (a *auditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestStatusLifecycle(t *testing.T) {
	repo := newStubPropertiesRepo()
	audit := &auditRecorder{}
	svc := NewService(repo, audit)

	p, err := svc.Create(context.Background(), 1, Input{Title: "فيلا الياسمين", Type: TypeVilla, Price: 1_200_000, City: "الرياض"})
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, p.Status)

	require.NoError(t, svc.SetStatus(context.Background(), 1, p.ID, StatusReserved))
	require.NoError(t, svc.SetStatus(context.Background(), 1, p.ID, StatusSold))

	// Sold listings only return to available, never straight to reserved.
	err = svc.SetStatus(context.Background(), 1, p.ID, StatusReserved)
	assert.Error(t, err)
	assert.Equal(t, StatusSold, repo.items[p.ID].Status)

	require.NoError(t, svc.SetStatus(context.Background(), 1, p.ID, StatusAvailable))
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	repo := newStubPropertiesRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), 1, Input{Title: "شقة", Type: TypeApartment, Price: 500_000, City: "جدة"})
	require.NoError(t, err)

	assert.Error(t, svc.SetStatus(context.Background(), 1, p.ID, "archived"))
}

func TestMutationsAreAudited(t *testing.T) {
	repo := newStubPropertiesRepo()
	audit := &auditRecorder{}
	svc := NewService(repo, audit)

	p, err := svc.Create(context.Background(), 9, Input{Title: "مكتب", Type: TypeOffice, Price: 300_000, City: "الدمام"})
	require.NoError(t, err)
	require.NoError(t, svc.SetPublished(context.Background(), 9, p.ID, true))
	require.NoError(t, svc.Delete(context.Background(), 9, p.ID))

	require.Len(t, audit.logs, 3)
	assert.Equal(t, "create", audit.logs[0].Action)
	assert.Equal(t, "publish", audit.logs[1].Action)
	assert.Equal(t, "delete", audit.logs[2].Action)
	for _, log := range audit.logs {
		assert.Equal(t, int64(9), log.ActorID)
		assert.Equal(t, "property", log.Entity)
	}
}

func TestListArabicCollation(t *testing.T) {
	repo := newStubPropertiesRepo()
	svc := NewService(repo, nil)

	for _, title := range []string{"فيلا النخيل", "أرض تجارية", "شقة مفروشة", "إستراحة عائلية"} {
		_, err := svc.Create(context.Background(), 1, Input{Title: title, Type: TypeVilla, Price: 100, City: "الرياض"})
		require.NoError(t, err)
	}

	items, _, err := svc.List(context.Background(), Filter{SortArabic: true})
	require.NoError(t, err)
	require.Len(t, items, 4)

	// Alef variants collate together ahead of later letters.
	assert.Equal(t, "فيلا النخيل", items[len(items)-1].Title)
	for i := 1; i < len(items); i++ {
		assert.LessOrEqual(t, shared.CompareArabic(items[i-1].Title, items[i].Title), 0)
	}
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(StatusAvailable, StatusReserved))
	assert.True(t, CanTransition(StatusReserved, StatusAvailable))
	assert.True(t, CanTransition(StatusRented, StatusAvailable))
	assert.False(t, CanTransition(StatusSold, StatusRented))
	assert.False(t, CanTransition(StatusAvailable, StatusAvailable))
}
