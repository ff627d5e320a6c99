package business

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"huddle-api/internal/domain"
	"huddle-api/internal/repository"
	"huddle-api/pkg/cache"
	"huddle-api/pkg/id"
	"huddle-api/pkg/xerrors"
)

const draftNamespace = "business_draft"

// Service keeps the multi-step onboarding draft in redis and only touches
// postgres on final submit.
type Service struct {
	cache    *cache.Cache
	repo     *repository.BusinessRepo
	sf       *id.Snowflake
	draftTTL time.Duration
}

func NewService(c *cache.Cache, repo *repository.BusinessRepo, sf *id.Snowflake, draftTTL time.Duration) *Service {
	return &Service{cache: c, repo: repo, sf: sf, draftTTL: draftTTL}
}

func draftKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (s *Service) SaveStep(ctx context.Context, userID int64, step int, fields map[string]interface{}) (domain.BusinessDraft, error) {
	draft := domain.BusinessDraft{}
	err := s.cache.GetJSON(ctx, draftNamespace, draftKey(userID), &draft)
	if err != nil && !cache.IsNil(err) {
		return nil, err
	}

	draft[fmt.Sprintf("step_%d", step)] = fields
	if err := s.cache.SetJSON(ctx, draftNamespace, draftKey(userID), draft, s.draftTTL); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *Service) GetDraft(ctx context.Context, userID int64) (domain.BusinessDraft, error) {
	draft := domain.BusinessDraft{}
	err := s.cache.GetJSON(ctx, draftNamespace, draftKey(userID), &draft)
	if cache.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *Service) ClearDraft(ctx context.Context, userID int64) error {
	return s.cache.Delete(ctx, draftNamespace, draftKey(userID))
}

// Submit merges all cached steps into one record, persists it and clears
// the draft.
func (s *Service) Submit(ctx context.Context, userID int64) (*domain.BusinessVerification, error) {
	draft, err := s.GetDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(draft) == 0 {
		return nil, xerrors.ErrNoDraftFound
	}

	merged := map[string]interface{}{}
	for _, stepData := range draft {
		for k, v := range stepData {
			merged[k] = v
		}
	}

	b := &domain.BusinessVerification{
		ID:                  s.sf.Generate(),
		UserID:              userID,
		BusinessName:        str(merged, "businessName"),
		BusinessDescription: str(merged, "businessDescription"),
		BusinessType:        str(merged, "businessType"),
		BusinessCountry:     strOr(merged, "businessCountry", "India"),
		RegistrationNumber:  str(merged, "registrationNumber"),
		OwnerName:           str(merged, "ownerName"),
		OwnerEmail:          str(merged, "ownerEmail"),
		PhoneNumber:         str(merged, "phoneNumber"),
		Website:             str(merged, "website"),
		City:                str(merged, "city"),
		State:               str(merged, "state"),
		PostalCode:          str(merged, "postalCode"),
		Status:              "submitted",
		SubmittedAt:         time.Now(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	if err := s.ClearDraft(ctx, userID); err != nil {
		log.Printf("Failed to clear business draft | UserID=%d | Err=%v", userID, err)
	}
	log.Printf("Business verification submitted | UserID=%d | BusinessID=%d", userID, b.ID)
	return b, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*domain.BusinessVerification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns one submission, restricted to its owner.
func (s *Service) Get(ctx context.Context, userID, businessID int64) (*domain.BusinessVerification, error) {
	b, err := s.repo.GetByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, xerrors.ErrNotFound
	}
	return b, nil
}

func str(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func strOr(m map[string]interface{}, key, fallback string) string {
	if v := str(m, key); v != "" {
		return v
	}
	return fallback
}
