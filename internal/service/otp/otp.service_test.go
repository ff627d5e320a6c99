package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"huddle-api/internal/domain"
	"huddle-api/pkg/id"
	"huddle-api/pkg/xerrors"
)

// fakeStore keeps records in memory. WithContactLock runs fn directly; the
// serialization guarantee is the repository's job, not the engine's.
type fakeStore struct {
	records []*domain.OtpRecord
}

func (f *fakeStore) WithContactLock(ctx context.Context, contact string, fn func(ctx context.Context, s Store) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) LatestUnverified(_ context.Context, contact string) (*domain.OtpRecord, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].Contact == contact && !f.records[i].IsVerified {
			return f.records[i], nil
		}
	}
	return nil, xerrors.ErrOTPNotFound
}

func (f *fakeStore) LatestVerified(_ context.Context, contact string) (*domain.OtpRecord, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].Contact == contact && f.records[i].IsVerified {
			return f.records[i], nil
		}
	}
	return nil, xerrors.ErrOTPNotFound
}

func (f *fakeStore) DeleteUnverified(_ context.Context, contact string) (int64, error) {
	var kept []*domain.OtpRecord
	var deleted int64
	for _, r := range f.records {
		if r.Contact == contact && !r.IsVerified {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return deleted, nil
}

func (f *fakeStore) Create(_ context.Context, rec *domain.OtpRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) UpdateAttempts(_ context.Context, otpID int64, count int, startedAt *time.Time) error {
	for _, r := range f.records {
		if r.ID == otpID {
			r.AttemptCount = count
			r.AttemptsStartedAt = startedAt
			return nil
		}
	}
	return xerrors.ErrOTPNotFound
}

func (f *fakeStore) MarkVerified(_ context.Context, otpID int64, at time.Time) error {
	for _, r := range f.records {
		if r.ID == otpID {
			r.IsVerified = true
			t := at
			r.VerifiedAt = &t
			return nil
		}
	}
	return xerrors.ErrOTPNotFound
}

func (f *fakeStore) unverifiedCount(contact string) int {
	n := 0
	for _, r := range f.records {
		if r.Contact == contact && !r.IsVerified {
			n++
		}
	}
	return n
}

// rollbackStore mirrors the sql transaction behind WithContactLock: writes
// made inside the callback survive only when it returns nil.
type rollbackStore struct {
	fakeStore
}

func (r *rollbackStore) WithContactLock(ctx context.Context, contact string, fn func(ctx context.Context, s Store) error) error {
	work := &fakeStore{records: cloneRecords(r.records)}
	if err := fn(ctx, work); err != nil {
		return err
	}
	r.records = work.records
	return nil
}

func cloneRecords(in []*domain.OtpRecord) []*domain.OtpRecord {
	out := make([]*domain.OtpRecord, len(in))
	for i, rec := range in {
		cp := *rec
		if rec.AttemptsStartedAt != nil {
			t := *rec.AttemptsStartedAt
			cp.AttemptsStartedAt = &t
		}
		if rec.VerifiedAt != nil {
			t := *rec.VerifiedAt
			cp.VerifiedAt = &t
		}
		out[i] = &cp
	}
	return out
}

type fakeGateway struct {
	emails      int
	sms         int
	lastPurpose string
	err         error
}

func (g *fakeGateway) SendEmail(_ context.Context, _, _, purpose string) error {
	g.emails++
	g.lastPurpose = purpose
	return g.err
}

func (g *fakeGateway) SendSms(_ context.Context, _, _, purpose string) error {
	g.sms++
	g.lastPurpose = purpose
	return g.err
}

func newTestService(t *testing.T, store Store, gw *fakeGateway, now time.Time) (*Service, *time.Time) {
	t.Helper()
	sf, err := id.NewSnowflake(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	svc := NewService(store, gw, sf, domain.OTPExpiry, 10*time.Second, true)
	current := now
	svc.now = func() time.Time { return current }
	return svc, &current
}

const contact = "user@example.com"

func TestSendAndVerifyRoundTrip(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store, &fakeGateway{}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	sent, err := svc.Send(ctx, contact, nil, "1.2.3.4", "verification", false)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sent.DebugCode) != 6 {
		t.Fatalf("debug code %q, want 6 digits", sent.DebugCode)
	}

	res, err := svc.Verify(ctx, contact, sent.DebugCode)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.OtpID != sent.OtpID {
		t.Errorf("verified OtpID = %d, want %d", res.OtpID, sent.OtpID)
	}

	// The code is consumed: a second verify finds nothing unverified.
	_, err = svc.Verify(ctx, contact, sent.DebugCode)
	if !errors.Is(err, xerrors.ErrOTPNotFound) {
		t.Errorf("second verify err = %v, want ErrOTPNotFound", err)
	}
}

func TestVerifyWrongCodeCountsDown(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store, &fakeGateway{}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := svc.Send(ctx, contact, nil, "", "verification", false); err != nil {
		t.Fatalf("Send: %v", err)
	}

	wantRemaining := []int{2, 1, 0}
	for i, want := range wantRemaining {
		_, err := svc.Verify(ctx, contact, "000000")
		var oe *Error
		if !errors.As(err, &oe) {
			t.Fatalf("attempt %d: err = %v, want *Error", i+1, err)
		}
		if oe.AttemptsRemaining != want {
			t.Errorf("attempt %d: AttemptsRemaining = %d, want %d", i+1, oe.AttemptsRemaining, want)
		}
		if want > 0 && !errors.Is(err, xerrors.ErrInvalidOTP) {
			t.Errorf("attempt %d: err = %v, want ErrInvalidOTP", i+1, err)
		}
		if want == 0 {
			if !errors.Is(err, xerrors.ErrOTPMaxAttempts) {
				t.Errorf("attempt %d: err = %v, want ErrOTPMaxAttempts", i+1, err)
			}
			if oe.TimeUntilReset == "" {
				t.Error("lockout response missing TimeUntilReset")
			}
		}
	}

	// Further attempts stay locked without bumping the counter.
	_, err := svc.Verify(ctx, contact, "000000")
	if !errors.Is(err, xerrors.ErrOTPMaxAttempts) {
		t.Fatalf("locked verify err = %v, want ErrOTPMaxAttempts", err)
	}
	rec, _ := store.LatestUnverified(ctx, contact)
	if rec.AttemptCount != 3 {
		t.Errorf("AttemptCount = %d, want 3 after lockout", rec.AttemptCount)
	}
}

func TestSendBlockedDuringLockout(t *testing.T) {
	store := &fakeStore{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newTestService(t, store, &fakeGateway{}, start)
	ctx := context.Background()

	if _, err := svc.Send(ctx, contact, nil, "", "verification", false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for i := 0; i < 3; i++ {
		svc.Verify(ctx, contact, "000000")
	}

	_, err := svc.Send(ctx, contact, nil, "", "verification", true)
	if !errors.Is(err, xerrors.ErrOTPRateLimited) {
		t.Fatalf("locked send err = %v, want ErrOTPRateLimited", err)
	}

	// Once 24h pass the lockout clears and a fresh code is issued.
	*now = start.Add(24*time.Hour + time.Minute)
	sent, err := svc.Send(ctx, contact, nil, "", "verification", true)
	if err != nil {
		t.Fatalf("send after window: %v", err)
	}
	if sent.DebugCode == "" {
		t.Error("expected a fresh code after lockout expiry")
	}
	if n := store.unverifiedCount(contact); n != 1 {
		t.Errorf("unverified records = %d, want 1 after purge", n)
	}
}

func TestResendPurgesPreviousCodes(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store, &fakeGateway{}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := svc.Send(ctx, contact, nil, "", "verification", false)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	second, err := svc.Send(ctx, contact, nil, "", "verification", true)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}

	if n := store.unverifiedCount(contact); n != 1 {
		t.Fatalf("unverified records = %d, want 1", n)
	}
	if first.OtpID == second.OtpID {
		t.Fatal("resend reused the same record")
	}

	// Only the latest code can verify now.
	if first.DebugCode != second.DebugCode {
		_, err = svc.Verify(ctx, contact, first.DebugCode)
		if !errors.Is(err, xerrors.ErrInvalidOTP) {
			t.Errorf("old code verify err = %v, want ErrInvalidOTP", err)
		}
	}
	if _, err := svc.Verify(ctx, contact, second.DebugCode); err != nil {
		t.Errorf("latest code verify: %v", err)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exactly at expiry verifies", func(t *testing.T) {
		store := &fakeStore{}
		svc, now := newTestService(t, store, &fakeGateway{}, start)
		ctx := context.Background()

		sent, err := svc.Send(ctx, contact, nil, "", "verification", false)
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		*now = start.Add(domain.OTPExpiry)
		if _, err := svc.Verify(ctx, contact, sent.DebugCode); err != nil {
			t.Errorf("verify at boundary: %v", err)
		}
	})

	t.Run("one second past expiry fails", func(t *testing.T) {
		store := &fakeStore{}
		svc, now := newTestService(t, store, &fakeGateway{}, start)
		ctx := context.Background()

		sent, err := svc.Send(ctx, contact, nil, "", "verification", false)
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		*now = start.Add(domain.OTPExpiry + time.Second)
		_, err = svc.Verify(ctx, contact, sent.DebugCode)
		if !errors.Is(err, xerrors.ErrExpiredOTP) {
			t.Errorf("verify past boundary err = %v, want ErrExpiredOTP", err)
		}
	})
}

// A wrong code on an expired record reports invalid, not expired, and still
// burns an attempt.
func TestVerifyExpiredWrongCodeReportsInvalid(t *testing.T) {
	store := &fakeStore{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newTestService(t, store, &fakeGateway{}, start)
	ctx := context.Background()

	if _, err := svc.Send(ctx, contact, nil, "", "verification", false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	*now = start.Add(time.Hour)

	_, err := svc.Verify(ctx, contact, "000000")
	if !errors.Is(err, xerrors.ErrInvalidOTP) {
		t.Fatalf("err = %v, want ErrInvalidOTP", err)
	}
	rec, _ := store.LatestUnverified(ctx, contact)
	if rec.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", rec.AttemptCount)
	}
}

func TestSendDeliveryFailureKeepsRecord(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{err: errors.New("provider down")}
	svc, _ := newTestService(t, store, gw, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Send(ctx, contact, nil, "", "verification", false)
	if !errors.Is(err, xerrors.ErrOTPDeliveryFailed) {
		t.Fatalf("err = %v, want ErrOTPDeliveryFailed", err)
	}

	// The record survived the failed dispatch and its code still verifies.
	rec, err := store.LatestUnverified(ctx, contact)
	if err != nil {
		t.Fatalf("record missing after delivery failure: %v", err)
	}
	if _, err := svc.Verify(ctx, contact, rec.Code); err != nil {
		t.Errorf("verify after delivery failure: %v", err)
	}
}

func TestSendRoutesByChannel(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{}
	svc, _ := newTestService(t, store, gw, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := svc.Send(ctx, "user@example.com", nil, "", "", false); err != nil {
		t.Fatalf("email send: %v", err)
	}
	if gw.lastPurpose != "verification" {
		t.Errorf("empty purpose dispatched as %q, want verification default", gw.lastPurpose)
	}
	if _, err := svc.Send(ctx, "+91 98765 43210", nil, "", "password_reset", false); err != nil {
		t.Fatalf("sms send: %v", err)
	}
	if gw.lastPurpose != "password_reset" {
		t.Errorf("purpose dispatched as %q, want password_reset", gw.lastPurpose)
	}
	if gw.emails != 1 || gw.sms != 1 {
		t.Errorf("dispatch counts emails=%d sms=%d, want 1 each", gw.emails, gw.sms)
	}
}

// Failed verifies report through the error value, not the callback's return,
// so a transactional store must still commit the attempt increments. Run the
// full lockout sequence against a store that discards writes whenever the
// callback errors, the way the pgx implementation does.
func TestVerifyAttemptWritesSurviveTransactionBoundary(t *testing.T) {
	store := &rollbackStore{}
	svc, _ := newTestService(t, store, &fakeGateway{}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := svc.Send(ctx, contact, nil, "", "verification", false); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for i, wantCount := range []int{1, 2, 3} {
		_, err := svc.Verify(ctx, contact, "000000")
		var oe *Error
		if !errors.As(err, &oe) {
			t.Fatalf("attempt %d: err = %v, want *Error", i+1, err)
		}
		rec, err := store.LatestUnverified(ctx, contact)
		if err != nil {
			t.Fatalf("attempt %d: record lookup: %v", i+1, err)
		}
		if rec.AttemptCount != wantCount {
			t.Fatalf("attempt %d: persisted AttemptCount = %d, want %d", i+1, rec.AttemptCount, wantCount)
		}
		if rec.AttemptsStartedAt == nil {
			t.Fatalf("attempt %d: persisted AttemptsStartedAt is nil", i+1)
		}
	}

	// With the increments durable, the fourth wrong code is a lockout and a
	// new send is blocked.
	_, err := svc.Verify(ctx, contact, "000000")
	if !errors.Is(err, xerrors.ErrOTPMaxAttempts) {
		t.Errorf("fourth attempt err = %v, want ErrOTPMaxAttempts", err)
	}
	_, err = svc.Send(ctx, contact, nil, "", "verification", true)
	if !errors.Is(err, xerrors.ErrOTPRateLimited) {
		t.Errorf("send during lockout err = %v, want ErrOTPRateLimited", err)
	}
}

func TestHasRecentVerification(t *testing.T) {
	store := &fakeStore{}
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newTestService(t, store, &fakeGateway{}, start)
	ctx := context.Background()

	ok, err := svc.HasRecentVerification(ctx, contact, 15*time.Minute)
	if err != nil || ok {
		t.Fatalf("before verify: ok=%v err=%v, want false nil", ok, err)
	}

	sent, err := svc.Send(ctx, contact, nil, "", "verification", false)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Verify(ctx, contact, sent.DebugCode); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	ok, _ = svc.HasRecentVerification(ctx, contact, 15*time.Minute)
	if !ok {
		t.Error("just verified, want true")
	}

	*now = start.Add(time.Hour)
	ok, _ = svc.HasRecentVerification(ctx, contact, 15*time.Minute)
	if ok {
		t.Error("verification aged out, want false")
	}
}
