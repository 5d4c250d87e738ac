package registration_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"saazebharat/internal/audit"
	"saazebharat/internal/config"
	"saazebharat/internal/content"
	"saazebharat/internal/database"
	"saazebharat/internal/model"
	"saazebharat/internal/registration"

	"github.com/google/uuid"
)

// memStore mirrors the guarded-update semantics of the Postgres store so the
// manager can be tested without a database.
type memStore struct {
	mu   sync.Mutex
	regs map[uuid.UUID]model.Registration
}

func newMemStore() *memStore {
	return &memStore{regs: map[uuid.UUID]model.Registration{}}
}

func (s *memStore) CreateRegistration(_ context.Context, reg model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.regs {
		if existing.Email == reg.Email {
			return database.ErrDuplicateEmail
		}
	}
	s.regs[reg.ID] = reg
	return nil
}

func (s *memStore) GetRegistrationByID(_ context.Context, id uuid.UUID) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return model.Registration{}, database.ErrRegistrationNotFound
	}
	return reg, nil
}

func (s *memStore) GetRegistrationByEmail(_ context.Context, email string) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.regs {
		if reg.Email == email {
			return reg, nil
		}
	}
	return model.Registration{}, database.ErrRegistrationNotFound
}

func (s *memStore) GetRegistrationByQRID(_ context.Context, qrID string) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.regs {
		if reg.QRID != nil && *reg.QRID == qrID {
			return reg, nil
		}
	}
	return model.Registration{}, database.ErrRegistrationNotFound
}

func (s *memStore) UpdateSubmission(_ context.Context, reg model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.regs[reg.ID]
	if !ok || current.IsEmailVerified {
		return database.ErrNotEligible
	}
	current.Category = reg.Category
	current.Phone = reg.Phone
	current.FullName = reg.FullName
	current.Organization = reg.Organization
	current.VerificationOTP = reg.VerificationOTP
	current.OTPExpires = reg.OTPExpires
	current.Details = reg.Details
	if reg.DocumentKey != nil {
		current.DocumentKey = reg.DocumentKey
	}
	s.regs[reg.ID] = current
	return nil
}

func (s *memStore) MarkVerified(_ context.Context, id uuid.UUID, code string, now time.Time, next model.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok || reg.IsEmailVerified {
		return false, nil
	}
	if reg.VerificationOTP == nil || *reg.VerificationOTP != code {
		return false, nil
	}
	if reg.OTPExpires == nil || !now.Before(*reg.OTPExpires) {
		return false, nil
	}
	reg.IsEmailVerified = true
	reg.Status = next
	reg.VerificationOTP = nil
	reg.OTPExpires = nil
	s.regs[id] = reg
	return true, nil
}

func (s *memStore) TransitionToApproved(_ context.Context, id uuid.UUID, qrID string, forced bool) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok || reg.QRID != nil || (reg.Status != model.StatusPendingReview && !forced) {
		return model.Registration{}, database.ErrNotEligible
	}
	reg.Status = model.StatusApproved
	reg.QRID = &qrID
	s.regs[id] = reg
	return reg, nil
}

func (s *memStore) TransitionToRejected(_ context.Context, id uuid.UUID, reason string) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return model.Registration{}, database.ErrRegistrationNotFound
	}
	reg.Status = model.StatusRejected
	reg.RejectionReason = &reason
	s.regs[id] = reg
	return reg, nil
}

func (s *memStore) RejectIfPendingReview(_ context.Context, id uuid.UUID, reason string) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok || reg.Status != model.StatusPendingReview {
		return model.Registration{}, database.ErrNotEligible
	}
	reg.Status = model.StatusRejected
	reg.RejectionReason = &reason
	s.regs[id] = reg
	return reg, nil
}

func (s *memStore) DeleteRegistration(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[id]; !ok {
		return database.ErrRegistrationNotFound
	}
	delete(s.regs, id)
	return nil
}

func (s *memStore) MarkCheckedIn(_ context.Context, qrID string, at time.Time) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reg := range s.regs {
		if reg.QRID == nil || *reg.QRID != qrID {
			continue
		}
		if reg.IsCheckedIn {
			return model.Registration{}, database.ErrAlreadyCheckedIn
		}
		reg.IsCheckedIn = true
		reg.CheckInTime = &at
		s.regs[id] = reg
		return reg, nil
	}
	return model.Registration{}, database.ErrRegistrationNotFound
}

func (s *memStore) matches(reg model.Registration, params database.ListRegistrationsParams) bool {
	if !reg.IsEmailVerified {
		return false
	}
	if params.Category != "" && string(reg.Category) != params.Category {
		return false
	}
	if params.Status != "" && string(reg.Status) != params.Status {
		return false
	}
	if params.AttendanceDay != "" {
		visitor, ok := reg.Details.(model.VisitorDetails)
		if !ok || visitor.AttendanceDay != params.AttendanceDay {
			return false
		}
	}
	if params.Search != "" {
		needle := strings.ToLower(params.Search)
		if !strings.Contains(strings.ToLower(reg.FullName), needle) &&
			!strings.Contains(strings.ToLower(reg.Email), needle) {
			return false
		}
	}
	return true
}

func (s *memStore) sortedVerified(params database.ListRegistrationsParams) []model.Registration {
	var matched []model.Registration
	for _, reg := range s.regs {
		if s.matches(reg, params) {
			matched = append(matched, reg)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (s *memStore) ListRegistrations(_ context.Context, params database.ListRegistrationsParams) ([]model.Registration, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.sortedVerified(params)
	total := int64(len(matched))

	start := (params.Page - 1) * params.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *memStore) CountVerified(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, reg := range s.regs {
		if reg.IsEmailVerified {
			count++
		}
	}
	return count, nil
}

func (s *memStore) CountVerifiedSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, reg := range s.regs {
		if reg.IsEmailVerified && !reg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) CategoryCounts(_ context.Context) ([]database.CategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[model.Category]int64{}
	for _, reg := range s.regs {
		if reg.IsEmailVerified {
			counts[reg.Category]++
		}
	}
	var stats []database.CategoryCount
	for category, count := range counts {
		stats = append(stats, database.CategoryCount{Category: category, Count: count})
	}
	return stats, nil
}

func (s *memStore) DailyTrend(_ context.Context, since time.Time) ([]database.TrendPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets := map[string]int64{}
	for _, reg := range s.regs {
		if reg.IsEmailVerified && !reg.CreatedAt.Before(since) {
			buckets[reg.CreatedAt.Format("2006-01-02")]++
		}
	}
	var trend []database.TrendPoint
	for date, count := range buckets {
		trend = append(trend, database.TrendPoint{Date: date, Count: count})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })
	return trend, nil
}

func (s *memStore) ExportRegistrations(_ context.Context, params database.ExportParams) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []model.Registration
	for _, reg := range s.regs {
		if !reg.IsEmailVerified {
			continue
		}
		if params.Category != "" && string(reg.Category) != params.Category {
			continue
		}
		if params.StartDate != nil && reg.CreatedAt.Before(*params.StartDate) {
			continue
		}
		if params.EndDate != nil && reg.CreatedAt.After(*params.EndDate) {
			continue
		}
		matched = append(matched, reg)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if params.Offset >= len(matched) {
		return nil, nil
	}
	end := params.Offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[params.Offset:end], nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return io.ErrClosedPipe
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// emptyContentStore forces every template lookup onto its fallback.
type emptyContentStore struct{}

func (emptyContentStore) GetContentByKey(context.Context, string) (model.ContentEntry, error) {
	return model.ContentEntry{}, database.ErrContentNotFound
}

func (emptyContentStore) ListContentBySection(context.Context, string) ([]model.ContentEntry, error) {
	return nil, nil
}

func (emptyContentStore) UpsertContent(context.Context, model.ContentEntry) error { return nil }

type memAuditStore struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (s *memAuditStore) CreateAuditEntry(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memAuditStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []string
	for _, entry := range s.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type testEnv struct {
	manager *registration.Manager
	store   *memStore
	mailer  *fakeMailer
	audits  *memAuditStore
}

func newTestEnv(policy string) testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	sender := &fakeMailer{}
	audits := &memAuditStore{}
	recorder := audit.NewRecorder(audits, logger)

	manager := registration.NewManager(
		store,
		sender,
		content.NewService(emptyContentStore{}, recorder, logger),
		recorder,
		nil,
		config.RegistrationConfig{ApprovalPolicy: policy, OTPTTL: 30 * time.Minute},
		"test-ticket-key",
		logger,
	)
	return testEnv{manager: manager, store: store, mailer: sender, audits: audits}
}
