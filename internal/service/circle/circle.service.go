package circle

import (
	"context"
	"errors"
	"log"
	"time"

	"huddle-api/internal/domain"
	"huddle-api/pkg/id"
	"huddle-api/pkg/xerrors"
)

// Store is the circle/invitation persistence. InTx must run fn atomically:
// resolve + counter bump + possible activation + possible membership insert
// either all apply or none do. Pending lookups inside a tx take row locks so
// concurrent resolutions of the same invitation cannot both succeed.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	CreateCircle(ctx context.Context, c *domain.Circle) error
	CreateInvitations(ctx context.Context, invs []*domain.CircleInvitation) error
	GetCircle(ctx context.Context, circleID int64) (*domain.Circle, error)
	LockCircle(ctx context.Context, circleID int64) (*domain.Circle, error)
	PendingInvitation(ctx context.Context, circleID, userID int64) (*domain.CircleInvitation, error)
	PendingInvitationByID(ctx context.Context, invitationID int64) (*domain.CircleInvitation, error)
	ResolveInvitation(ctx context.Context, invitationID int64, status string, at time.Time) error
	IncrementSent(ctx context.Context, circleID int64, n int) (int, error)
	IncrementAccepted(ctx context.Context, circleID int64) (int, error)
	IncrementDeclined(ctx context.Context, circleID int64) (int, error)
	SetCircleStatus(ctx context.Context, circleID int64, status string) error
	AddMember(ctx context.Context, m *domain.CircleMember) error
	ListPendingByCreator(ctx context.Context, creatorID int64) ([]*domain.CircleInvitation, error)
}

type CreateParams struct {
	Name             string
	Description      string
	ProfilePhoto     string
	Categories       []string
	CircleType       string
	OnlyAdminCanPost bool
	AllowJoinRequest bool
	CreatedBy        int64
	Members          []int64
}

type InviteParams struct {
	CircleID    int64
	RequestedBy int64
	Members     []int64
}

type ResolveParams struct {
	CircleID     int64
	UserID       int64
	InvitationID int64 // admin path
	Accept       bool
	AsAdmin      bool
}

type ResolveResult struct {
	InvitationStatus string
	CircleStatus     string
}

type Service struct {
	store Store
	sf    *id.Snowflake
	now   func() time.Time
}

func NewService(store Store, sf *id.Snowflake) *Service {
	return &Service{store: store, sf: sf, now: time.Now}
}

// Create stores a pending circle plus one invitation per member in a single
// transaction. Circles start below quorum and are not usable until enough
// invitations are accepted.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.Circle, error) {
	if len(p.Members) < domain.MinInvitedMembers {
		return nil, xerrors.ErrNotEnoughMembers
	}

	circleType := p.CircleType
	if circleType == "" {
		circleType = "public"
	}

	now := s.now()
	c := &domain.Circle{
		ID:               s.sf.Generate(),
		Name:             p.Name,
		Description:      p.Description,
		ProfilePhoto:     p.ProfilePhoto,
		Categories:       p.Categories,
		CircleType:       circleType,
		OnlyAdminCanPost: p.OnlyAdminCanPost,
		AllowJoinRequest: p.AllowJoinRequest,
		CreatedBy:        p.CreatedBy,
		Status:           domain.CircleStatusPending,
		InvitationsSent:  len(p.Members),
		CreatedAt:        now,
	}

	invs := make([]*domain.CircleInvitation, 0, len(p.Members))
	for _, memberID := range p.Members {
		invs = append(invs, &domain.CircleInvitation{
			ID:        s.sf.Generate(),
			CircleID:  c.ID,
			UserID:    memberID,
			Status:    domain.InvitationPending,
			CreatedAt: now,
		})
	}

	err := s.store.InTx(ctx, func(ctx context.Context, st Store) error {
		if err := st.CreateCircle(ctx, c); err != nil {
			if xerrors.IsUniqueViolation(err) {
				return xerrors.ErrCircleNameTaken
			}
			return err
		}
		return st.CreateInvitations(ctx, invs)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Circle created | CircleID=%d | Creator=%d | Invited=%d", c.ID, p.CreatedBy, len(invs))
	return c, nil
}

// Invite adds invitations to an existing circle after creation. Only the
// creator may invite; users who already hold a pending invitation are
// skipped so the same person is never counted toward quorum twice.
func (s *Service) Invite(ctx context.Context, p InviteParams) (*domain.Circle, int, error) {
	if len(p.Members) == 0 {
		return nil, 0, xerrors.ErrInvalidInput
	}

	var (
		circle *domain.Circle
		added  int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, st Store) error {
		c, err := st.LockCircle(ctx, p.CircleID)
		if err != nil {
			return err
		}
		if c.CreatedBy != p.RequestedBy {
			return xerrors.ErrForbidden
		}

		now := s.now()
		var invs []*domain.CircleInvitation
		for _, memberID := range p.Members {
			_, err := st.PendingInvitation(ctx, c.ID, memberID)
			if err == nil {
				continue
			}
			if !errors.Is(err, xerrors.ErrInvitationNotFound) {
				return err
			}
			invs = append(invs, &domain.CircleInvitation{
				ID:        s.sf.Generate(),
				CircleID:  c.ID,
				UserID:    memberID,
				Status:    domain.InvitationPending,
				CreatedAt: now,
			})
		}

		if len(invs) > 0 {
			if err := st.CreateInvitations(ctx, invs); err != nil {
				return err
			}
			total, err := st.IncrementSent(ctx, c.ID, len(invs))
			if err != nil {
				return err
			}
			c.InvitationsSent = total
		}

		circle = c
		added = len(invs)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	log.Printf("Members invited | CircleID=%d | Requested=%d | Added=%d", p.CircleID, len(p.Members), added)
	return circle, added, nil
}

// Resolve moves one pending invitation to a terminal state and keeps the
// circle's denormalized counters in step. On the accepting path it also adds
// the invited user as a member (self-service only) and activates the circle
// once accepted invitations reach quorum, guaranteeing the creator an admin
// membership row.
func (s *Service) Resolve(ctx context.Context, p ResolveParams) (*ResolveResult, error) {
	var res ResolveResult

	err := s.store.InTx(ctx, func(ctx context.Context, st Store) error {
		var (
			inv *domain.CircleInvitation
			err error
		)
		if p.AsAdmin {
			inv, err = st.PendingInvitationByID(ctx, p.InvitationID)
		} else {
			inv, err = st.PendingInvitation(ctx, p.CircleID, p.UserID)
		}
		if errors.Is(err, xerrors.ErrNotFound) || errors.Is(err, xerrors.ErrInvitationNotFound) {
			return xerrors.ErrInvitationNotFound
		}
		if err != nil {
			return err
		}

		now := s.now()

		if !p.Accept {
			if err := st.ResolveInvitation(ctx, inv.ID, domain.InvitationDeclined, now); err != nil {
				return err
			}
			if _, err := st.IncrementDeclined(ctx, inv.CircleID); err != nil {
				return err
			}
			res.InvitationStatus = domain.InvitationDeclined
			return nil
		}

		if err := st.ResolveInvitation(ctx, inv.ID, domain.InvitationAccepted, now); err != nil {
			return err
		}

		// Re-read the circle under lock so the counter and the quorum
		// decision see the same row state.
		circle, err := st.LockCircle(ctx, inv.CircleID)
		if err != nil {
			return err
		}

		accepted, err := st.IncrementAccepted(ctx, inv.CircleID)
		if err != nil {
			return err
		}
		circle.InvitationsAccepted = accepted

		if !p.AsAdmin {
			if err := st.AddMember(ctx, &domain.CircleMember{
				ID:       s.sf.Generate(),
				CircleID: inv.CircleID,
				UserID:   inv.UserID,
				Role:     domain.RoleMember,
				JoinedAt: now,
			}); err != nil {
				return err
			}
		}

		if circle.ReachedQuorum() {
			if err := st.SetCircleStatus(ctx, circle.ID, domain.CircleStatusActive); err != nil {
				return err
			}
			circle.Status = domain.CircleStatusActive

			// Creator admin membership is create-if-absent.
			if err := st.AddMember(ctx, &domain.CircleMember{
				ID:       s.sf.Generate(),
				CircleID: circle.ID,
				UserID:   circle.CreatedBy,
				Role:     domain.RoleAdmin,
				JoinedAt: now,
			}); err != nil {
				return err
			}
			log.Printf("Circle activated at quorum | CircleID=%d | Accepted=%d", circle.ID, accepted)
		}

		res.InvitationStatus = domain.InvitationAccepted
		res.CircleStatus = circle.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) Get(ctx context.Context, circleID int64) (*domain.Circle, error) {
	return s.store.GetCircle(ctx, circleID)
}

func (s *Service) PendingRequests(ctx context.Context, creatorID int64) ([]*domain.CircleInvitation, error) {
	return s.store.ListPendingByCreator(ctx, creatorID)
}
