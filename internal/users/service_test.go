package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amlakhq/amlak/internal/rbac"
	"github.com/amlakhq/amlak/internal/security"
	"github.com/amlakhq/amlak/internal/shared"
)

type stubUsersRepo struct {
	profiles    map[int64]*Profile
	roleUpdates int
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{profiles: make(map[int64]*Profile)}
}

func (s *stubUsersRepo) List(_ context.Context, _ Filter) ([]Profile, int, error) {
	var out []Profile
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (s *stubUsersRepo) Get(_ context.Context, id int64) (*Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *stubUsersRepo) Create(_ context.Context, input CreateInput) (*Profile, error) {
	p := &Profile{
		ID:       int64(len(s.profiles) + 1),
		Email:    input.Email,
		FullName: input.FullName,
		Phone:    input.Phone,
		Role:     input.Role,
		IsActive: true,
	}
	s.profiles[p.ID] = p
	copied := *p
	return &copied, nil
}

func (s *stubUsersRepo) Update(_ context.Context, id int64, input UpdateInput) (*Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if input.FullName != nil {
		p.FullName = *input.FullName
	}
	if input.Phone != nil && *input.Phone != "" {
		p.Phone = *input.Phone
	}
	copied := *p
	return &copied, nil
}

func (s *stubUsersRepo) UpdateRole(_ context.Context, id int64, role rbac.Role) error {
	p, ok := s.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Role = role
	s.roleUpdates++
	return nil
}

func (s *stubUsersRepo) SetActive(_ context.Context, id int64, active bool) error {
	p, ok := s.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = active
	return nil
}

type stubResolver struct {
	repo        *stubUsersRepo
	invalidated int
}

func (s *stubResolver) RoleOf(_ context.Context, userID int64) (rbac.Role, error) {
	p, ok := s.repo.profiles[userID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return p.Role, nil
}

func (s *stubResolver) Invalidate(_ context.Context) error {
	s.invalidated++
	return nil
}

type eventSink struct {
	events []security.Event
}

func (e *eventSink) LogBestEffort(_ context.Context, event security.Event) {
	e.events = append(e.events, event)
}

func fixture() (*Service, *stubUsersRepo, *stubResolver, *eventSink) {
	repo := newStubUsersRepo()
	repo.profiles[1] = &Profile{ID: 1, Email: "admin@example.com", Role: rbac.RoleAdmin, IsActive: true}
	repo.profiles[2] = &Profile{ID: 2, Email: "manager@example.com", Role: rbac.RoleManager, IsActive: true}
	repo.profiles[3] = &Profile{ID: 3, Email: "agent@example.com", Role: rbac.RoleAgent, IsActive: true}
	resolver := &stubResolver{repo: repo}
	sink := &eventSink{}
	return NewService(repo, resolver, sink), repo, resolver, sink
}

func TestUpdateRoleBlocksSelfEscalation(t *testing.T) {
	svc, repo, resolver, _ := fixture()

	err := svc.UpdateRole(context.Background(), 2, 2, rbac.RoleAdmin)
	assert.ErrorIs(t, err, ErrSelfRoleChange)
	assert.Equal(t, rbac.RoleManager, repo.profiles[2].Role)
	assert.Zero(t, resolver.invalidated)
}

func TestUpdateRoleRequiresHigherTier(t *testing.T) {
	svc, repo, _, _ := fixture()

	// A manager cannot grant a role at or above their own tier.
	err := svc.UpdateRole(context.Background(), 2, 3, rbac.RoleAdmin)
	assert.ErrorIs(t, err, ErrInsufficientTier)

	// Nor can they touch someone they do not outrank.
	err = svc.UpdateRole(context.Background(), 2, 1, rbac.RoleClient)
	assert.ErrorIs(t, err, ErrInsufficientTier)

	assert.Equal(t, rbac.RoleAgent, repo.profiles[3].Role)
	assert.Equal(t, rbac.RoleAdmin, repo.profiles[1].Role)
}

func TestUpdateRoleRecordsEventAndInvalidates(t *testing.T) {
	svc, repo, resolver, sink := fixture()

	err := svc.UpdateRole(context.Background(), 1, 3, rbac.RoleAccountant)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAccountant, repo.profiles[3].Role)
	assert.Equal(t, 1, resolver.invalidated)

	require.Len(t, sink.events, 1)
	assert.Equal(t, security.EventRoleChanged, sink.events[0].EventType)
	assert.Equal(t, "agent", sink.events[0].Metadata["old_role"])
	assert.Equal(t, "accountant", sink.events[0].Metadata["new_role"])
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	svc, _, _, _ := fixture()

	err := svc.UpdateRole(context.Background(), 1, 3, rbac.Role("overlord"))
	assert.Error(t, err)
}

func TestSetActiveBlocksSelfDeactivation(t *testing.T) {
	svc, repo, _, _ := fixture()

	err := svc.SetActive(context.Background(), 1, 1, false)
	assert.ErrorIs(t, err, ErrSelfDeactivate)
	assert.True(t, repo.profiles[1].IsActive)
}

func TestSetActiveInvalidatesCache(t *testing.T) {
	svc, repo, resolver, _ := fixture()

	err := svc.SetActive(context.Background(), 1, 3, false)
	require.NoError(t, err)
	assert.False(t, repo.profiles[3].IsActive)
	assert.Equal(t, 1, resolver.invalidated)
}

func TestCreateEnforcesActorTier(t *testing.T) {
	svc, _, _, _ := fixture()

	_, err := svc.Create(context.Background(), 2, "new@example.com", "موظف جديد", "", "long enough password", rbac.RoleManager)
	assert.ErrorIs(t, err, ErrInsufficientTier)

	profile, err := svc.Create(context.Background(), 2, "new@example.com", "موظف جديد", "", "long enough password", rbac.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAgent, profile.Role)
}
