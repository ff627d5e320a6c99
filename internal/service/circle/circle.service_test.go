package circle

import (
	"context"
	"errors"
	"testing"
	"time"

	"huddle-api/internal/domain"
	"huddle-api/pkg/id"
	"huddle-api/pkg/xerrors"
)

type memberKey struct {
	circleID int64
	userID   int64
}

// fakeCircleStore is an in-memory Store. InTx runs fn directly; atomicity is
// the repository's concern.
type fakeCircleStore struct {
	circles     map[int64]*domain.Circle
	invitations map[int64]*domain.CircleInvitation
	members     map[memberKey]*domain.CircleMember
}

func newFakeCircleStore() *fakeCircleStore {
	return &fakeCircleStore{
		circles:     map[int64]*domain.Circle{},
		invitations: map[int64]*domain.CircleInvitation{},
		members:     map[memberKey]*domain.CircleMember{},
	}
}

func (f *fakeCircleStore) InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return fn(ctx, f)
}

func (f *fakeCircleStore) CreateCircle(_ context.Context, c *domain.Circle) error {
	for _, existing := range f.circles {
		if existing.Name == c.Name {
			return xerrors.ErrCircleNameTaken
		}
	}
	cp := *c
	f.circles[c.ID] = &cp
	return nil
}

func (f *fakeCircleStore) CreateInvitations(_ context.Context, invs []*domain.CircleInvitation) error {
	for _, inv := range invs {
		cp := *inv
		f.invitations[inv.ID] = &cp
	}
	return nil
}

func (f *fakeCircleStore) GetCircle(_ context.Context, circleID int64) (*domain.Circle, error) {
	c, ok := f.circles[circleID]
	if !ok {
		return nil, xerrors.ErrCircleNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCircleStore) LockCircle(ctx context.Context, circleID int64) (*domain.Circle, error) {
	return f.GetCircle(ctx, circleID)
}

func (f *fakeCircleStore) PendingInvitation(_ context.Context, circleID, userID int64) (*domain.CircleInvitation, error) {
	for _, inv := range f.invitations {
		if inv.CircleID == circleID && inv.UserID == userID && inv.Status == domain.InvitationPending {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, xerrors.ErrInvitationNotFound
}

func (f *fakeCircleStore) PendingInvitationByID(_ context.Context, invitationID int64) (*domain.CircleInvitation, error) {
	inv, ok := f.invitations[invitationID]
	if !ok || inv.Status != domain.InvitationPending {
		return nil, xerrors.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeCircleStore) ResolveInvitation(_ context.Context, invitationID int64, status string, at time.Time) error {
	inv, ok := f.invitations[invitationID]
	if !ok {
		return xerrors.ErrInvitationNotFound
	}
	inv.Status = status
	t := at
	switch status {
	case domain.InvitationAccepted:
		inv.AcceptedAt = &t
	case domain.InvitationDeclined:
		inv.DeclinedAt = &t
	}
	return nil
}

func (f *fakeCircleStore) IncrementSent(_ context.Context, circleID int64, n int) (int, error) {
	c, ok := f.circles[circleID]
	if !ok {
		return 0, xerrors.ErrCircleNotFound
	}
	c.InvitationsSent += n
	return c.InvitationsSent, nil
}

func (f *fakeCircleStore) IncrementAccepted(_ context.Context, circleID int64) (int, error) {
	c, ok := f.circles[circleID]
	if !ok {
		return 0, xerrors.ErrCircleNotFound
	}
	c.InvitationsAccepted++
	return c.InvitationsAccepted, nil
}

func (f *fakeCircleStore) IncrementDeclined(_ context.Context, circleID int64) (int, error) {
	c, ok := f.circles[circleID]
	if !ok {
		return 0, xerrors.ErrCircleNotFound
	}
	c.InvitationsDeclined++
	return c.InvitationsDeclined, nil
}

func (f *fakeCircleStore) SetCircleStatus(_ context.Context, circleID int64, status string) error {
	c, ok := f.circles[circleID]
	if !ok {
		return xerrors.ErrCircleNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeCircleStore) AddMember(_ context.Context, m *domain.CircleMember) error {
	key := memberKey{m.CircleID, m.UserID}
	if _, exists := f.members[key]; exists {
		return nil
	}
	cp := *m
	f.members[key] = &cp
	return nil
}

func (f *fakeCircleStore) ListPendingByCreator(_ context.Context, creatorID int64) ([]*domain.CircleInvitation, error) {
	var out []*domain.CircleInvitation
	for _, inv := range f.invitations {
		c, ok := f.circles[inv.CircleID]
		if ok && c.CreatedBy == creatorID && inv.Status == domain.InvitationPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestCircleService(t *testing.T) (*Service, *fakeCircleStore) {
	t.Helper()
	sf, err := id.NewSnowflake(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	store := newFakeCircleStore()
	return NewService(store, sf), store
}

func memberIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(100 + i)
	}
	return ids
}

const creatorID int64 = 1

func createTestCircle(t *testing.T, svc *Service, members []int64) *domain.Circle {
	t.Helper()
	c, err := svc.Create(context.Background(), CreateParams{
		Name:      "Weekend Traders",
		CreatedBy: creatorID,
		Members:   members,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func TestCreateRequiresMinimumMembers(t *testing.T) {
	svc, _ := newTestCircleService(t)

	_, err := svc.Create(context.Background(), CreateParams{
		Name:      "Too Small",
		CreatedBy: creatorID,
		Members:   memberIDs(9),
	})
	if !errors.Is(err, xerrors.ErrNotEnoughMembers) {
		t.Fatalf("err = %v, want ErrNotEnoughMembers", err)
	}
}

func TestCreateStartsPendingWithInvitations(t *testing.T) {
	svc, store := newTestCircleService(t)
	c := createTestCircle(t, svc, memberIDs(12))

	if c.Status != domain.CircleStatusPending {
		t.Errorf("status = %q, want pending", c.Status)
	}
	if c.InvitationsSent != 12 {
		t.Errorf("InvitationsSent = %d, want 12", c.InvitationsSent)
	}
	if len(store.invitations) != 12 {
		t.Errorf("stored invitations = %d, want 12", len(store.invitations))
	}

	_, err := svc.Create(context.Background(), CreateParams{
		Name:      "Weekend Traders",
		CreatedBy: creatorID,
		Members:   memberIDs(10),
	})
	if !errors.Is(err, xerrors.ErrCircleNameTaken) {
		t.Errorf("duplicate name err = %v, want ErrCircleNameTaken", err)
	}
}

func TestQuorumActivatesCircleExactlyOnce(t *testing.T) {
	svc, store := newTestCircleService(t)
	members := memberIDs(12)
	c := createTestCircle(t, svc, members)
	ctx := context.Background()

	// Nine accepts leave the circle pending.
	for i := 0; i < 9; i++ {
		res, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[i], Accept: true})
		if err != nil {
			t.Fatalf("accept %d: %v", i+1, err)
		}
		if res.CircleStatus != domain.CircleStatusPending {
			t.Fatalf("accept %d: circle status = %q, want pending", i+1, res.CircleStatus)
		}
	}
	if _, ok := store.members[memberKey{c.ID, creatorID}]; ok {
		t.Fatal("creator became a member before quorum")
	}

	// The tenth accept activates and seats the creator as admin.
	res, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[9], Accept: true})
	if err != nil {
		t.Fatalf("tenth accept: %v", err)
	}
	if res.CircleStatus != domain.CircleStatusActive {
		t.Fatalf("circle status = %q, want active", res.CircleStatus)
	}

	stored := store.circles[c.ID]
	if stored.InvitationsAccepted != 10 {
		t.Errorf("InvitationsAccepted = %d, want 10", stored.InvitationsAccepted)
	}
	admin, ok := store.members[memberKey{c.ID, creatorID}]
	if !ok || admin.Role != domain.RoleAdmin {
		t.Errorf("creator membership = %+v, want admin row", admin)
	}

	// Accepts past quorum keep the circle active and never duplicate the
	// creator's membership.
	if _, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[10], Accept: true}); err != nil {
		t.Fatalf("post-quorum accept: %v", err)
	}
	if store.circles[c.ID].Status != domain.CircleStatusActive {
		t.Error("circle left active state after extra accept")
	}
	if got := store.members[memberKey{c.ID, creatorID}].Role; got != domain.RoleAdmin {
		t.Errorf("creator role = %q, want admin", got)
	}
}

func TestInviteAddsPendingInvitations(t *testing.T) {
	svc, store := newTestCircleService(t)
	members := memberIDs(10)
	c := createTestCircle(t, svc, members)
	ctx := context.Background()

	// members[0] still holds a pending invitation and must be skipped.
	updated, added, err := svc.Invite(ctx, InviteParams{
		CircleID:    c.ID,
		RequestedBy: creatorID,
		Members:     []int64{members[0], 500, 501},
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if updated.InvitationsSent != 12 {
		t.Errorf("InvitationsSent = %d, want 12", updated.InvitationsSent)
	}
	if store.circles[c.ID].InvitationsSent != 12 {
		t.Errorf("stored InvitationsSent = %d, want 12", store.circles[c.ID].InvitationsSent)
	}
	if len(store.invitations) != 12 {
		t.Errorf("stored invitations = %d, want 12", len(store.invitations))
	}

	// A late invitee counts toward quorum like any other.
	res, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: 500, Accept: true})
	if err != nil {
		t.Fatalf("late invitee accept: %v", err)
	}
	if res.InvitationStatus != domain.InvitationAccepted {
		t.Errorf("invitation status = %q, want accepted", res.InvitationStatus)
	}
	if store.circles[c.ID].InvitationsAccepted != 1 {
		t.Errorf("InvitationsAccepted = %d, want 1", store.circles[c.ID].InvitationsAccepted)
	}
}

func TestInviteOnlyCreatorMay(t *testing.T) {
	svc, _ := newTestCircleService(t)
	c := createTestCircle(t, svc, memberIDs(10))

	_, _, err := svc.Invite(context.Background(), InviteParams{
		CircleID:    c.ID,
		RequestedBy: 999,
		Members:     []int64{500},
	})
	if !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	_, _, err = svc.Invite(context.Background(), InviteParams{
		CircleID:    c.ID + 1,
		RequestedBy: creatorID,
		Members:     []int64{500},
	})
	if !errors.Is(err, xerrors.ErrCircleNotFound) {
		t.Fatalf("missing circle err = %v, want ErrCircleNotFound", err)
	}

	_, _, err = svc.Invite(context.Background(), InviteParams{
		CircleID:    c.ID,
		RequestedBy: creatorID,
	})
	if !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Fatalf("empty members err = %v, want ErrInvalidInput", err)
	}
}

func TestResolveIsSingleShot(t *testing.T) {
	svc, _ := newTestCircleService(t)
	members := memberIDs(10)
	c := createTestCircle(t, svc, members)
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[0], Accept: true}); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	// Same invitation again, either direction, is gone.
	_, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[0], Accept: true})
	if !errors.Is(err, xerrors.ErrInvitationNotFound) {
		t.Errorf("second accept err = %v, want ErrInvitationNotFound", err)
	}
	_, err = svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[0], Accept: false})
	if !errors.Is(err, xerrors.ErrInvitationNotFound) {
		t.Errorf("decline after accept err = %v, want ErrInvitationNotFound", err)
	}
}

func TestDeclineCountsWithoutMembership(t *testing.T) {
	svc, store := newTestCircleService(t)
	members := memberIDs(10)
	c := createTestCircle(t, svc, members)
	ctx := context.Background()

	res, err := svc.Resolve(ctx, ResolveParams{CircleID: c.ID, UserID: members[0], Accept: false})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if res.InvitationStatus != domain.InvitationDeclined {
		t.Errorf("invitation status = %q, want declined", res.InvitationStatus)
	}
	if store.circles[c.ID].InvitationsDeclined != 1 {
		t.Errorf("InvitationsDeclined = %d, want 1", store.circles[c.ID].InvitationsDeclined)
	}
	if _, ok := store.members[memberKey{c.ID, members[0]}]; ok {
		t.Error("declined user gained membership")
	}
}

// The admin approval path accepts on behalf of the invitee by invitation id
// and does not seat them as a member.
func TestAdminResolveByInvitationID(t *testing.T) {
	svc, store := newTestCircleService(t)
	members := memberIDs(10)
	c := createTestCircle(t, svc, members)
	ctx := context.Background()

	pending, err := svc.PendingRequests(ctx, creatorID)
	if err != nil {
		t.Fatalf("PendingRequests: %v", err)
	}
	if len(pending) != 10 {
		t.Fatalf("pending = %d, want 10", len(pending))
	}

	res, err := svc.Resolve(ctx, ResolveParams{InvitationID: pending[0].ID, Accept: true, AsAdmin: true})
	if err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if res.InvitationStatus != domain.InvitationAccepted {
		t.Errorf("invitation status = %q, want accepted", res.InvitationStatus)
	}
	if store.circles[c.ID].InvitationsAccepted != 1 {
		t.Errorf("InvitationsAccepted = %d, want 1", store.circles[c.ID].InvitationsAccepted)
	}
	if _, ok := store.members[memberKey{c.ID, pending[0].UserID}]; ok {
		t.Error("admin path seated the invitee as a member")
	}
}
