package verification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/auth-actions/internal/domain"
	"github.com/stretchr/testify/mock"
)

// memCodeStore mirrors the DynamoDB code table: one row per (email, purpose),
// conditional claim / release / delete.
type memCodeStore struct {
	mu         sync.Mutex
	rows       map[string]domain.VerificationCode
	seq        int
	replaceErr error
	deleteErr  error
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{rows: map[string]domain.VerificationCode{}}
}

func rowKey(email string, p domain.Purpose) string { return email + "\x00" + string(p) }

func (s *memCodeStore) Replace(_ context.Context, v *domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.seq++
	v.ID = fmt.Sprintf("code-%d", s.seq)
	v.ClaimID, v.ClaimedUntil = "", 0
	s.rows[rowKey(v.Email, v.Purpose)] = *v
	return nil
}

func (s *memCodeStore) Get(_ context.Context, email string, purpose domain.Purpose) (*domain.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[rowKey(email, purpose)]
	if !ok {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	return &row, nil
}

func (s *memCodeStore) ListByEmail(_ context.Context, email string) ([]domain.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VerificationCode
	for _, row := range s.rows {
		if row.Email == email {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })
	return out, nil
}

func (s *memCodeStore) Claim(_ context.Context, v *domain.VerificationCode, claimID string, now, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[rowKey(v.Email, v.Purpose)]
	if !ok || cur.ID != v.ID || (cur.ClaimID != "" && cur.ClaimedUntil > now.Unix()) {
		return fmt.Errorf("verification code changed or already claimed: %w", domain.ErrNotFound)
	}
	cur.ClaimID, cur.ClaimedUntil = claimID, until.Unix()
	s.rows[rowKey(v.Email, v.Purpose)] = cur
	v.ClaimID, v.ClaimedUntil = claimID, until.Unix()
	return nil
}

func (s *memCodeStore) Release(_ context.Context, v *domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[rowKey(v.Email, v.Purpose)]
	if ok && cur.ClaimID == v.ClaimID {
		cur.ClaimID, cur.ClaimedUntil = "", 0
		s.rows[rowKey(v.Email, v.Purpose)] = cur
	}
	v.ClaimID, v.ClaimedUntil = "", 0
	return nil
}

func (s *memCodeStore) Delete(_ context.Context, v *domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	k := rowKey(v.Email, v.Purpose)
	cur, ok := s.rows[k]
	if !ok || cur.ID != v.ID || (v.ClaimID != "" && cur.ClaimID != v.ClaimID) {
		return fmt.Errorf("verification code already replaced: %w", domain.ErrNotFound)
	}
	delete(s.rows, k)
	return nil
}

func (s *memCodeStore) row(email string, p domain.Purpose) (domain.VerificationCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[rowKey(email, p)]
	return r, ok
}

func (s *memCodeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// --- mocks ---

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) CreateUser(ctx context.Context, p domain.CreateUserParams) (*domain.User, error) {
	args := m.Called(ctx, p)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentity) LookupUserID(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
func (m *mockIdentity) ConfirmEmail(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockIdentity) SetPassword(ctx context.Context, userID, password string) error {
	return m.Called(ctx, userID, password).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	return m.Called(ctx, to, subject, html).Error(0)
}

// --- builder ---

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var baseTime = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type harness struct {
	store    *memCodeStore
	identity *mockIdentity
	mailer   *mockMailer
	clock    *fakeClock
	issuer   *Issuer
	verifier *Verifier
}

func newHarness() *harness {
	h := &harness{
		store:    newMemCodeStore(),
		identity: &mockIdentity{},
		mailer:   &mockMailer{},
		clock:    &fakeClock{t: baseTime},
	}
	deps := Deps{
		Codes:      h.store,
		Identity:   h.identity,
		Mailer:     h.mailer,
		AppName:    "Mayor Exchange",
		CodeTTL:    15 * time.Minute,
		ClaimLease: 30 * time.Second,
		Now:        h.clock.Now,
	}
	h.issuer = NewIssuer(deps)
	h.verifier = NewVerifier(deps)
	return h
}

// mailOK lets every email through.
func (h *harness) mailOK() {
	h.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

// seed stores a code directly, bypassing the issuer.
func (h *harness) seed(email string, p domain.Purpose, code string, expiresAt time.Time) domain.VerificationCode {
	v := &domain.VerificationCode{Email: email, Purpose: p, Code: code, ExpiresAt: expiresAt, CreatedAt: h.clock.Now()}
	_ = h.store.Replace(context.Background(), v)
	return *v
}
