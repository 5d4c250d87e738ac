package registration_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"saazebharat/internal/config"
	"saazebharat/internal/database"
	"saazebharat/internal/model"
	"saazebharat/internal/otp"
	"saazebharat/internal/registration"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitVisitor(t *testing.T, env testEnv, email string) model.Registration {
	t.Helper()
	reg, err := env.manager.Submit(context.Background(), registration.SubmitInput{
		Category: model.CategoryVisitor,
		Email:    email,
		Phone:    "+911234567890",
		FullName: "Asha Rao",
		Details:  model.VisitorDetails{AttendanceDay: "Day 1"},
	})
	require.NoError(t, err)
	return reg
}

func verifiedVisitor(t *testing.T, env testEnv, email string) model.Registration {
	t.Helper()
	reg := submitVisitor(t, env, email)
	code := *storedOTP(t, env, reg.ID)
	verified, err := env.manager.ConfirmOTP(context.Background(), reg.ID, code)
	require.NoError(t, err)
	return verified
}

func storedOTP(t *testing.T, env testEnv, id uuid.UUID) *string {
	t.Helper()
	reg, err := env.store.GetRegistrationByID(context.Background(), id)
	require.NoError(t, err)
	return reg.VerificationOTP
}

func TestSubmit_NewRegistration(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)

	reg := submitVisitor(t, env, "asha@example.com")

	assert.Equal(t, model.StatusPendingVerification, reg.Status)
	assert.False(t, reg.IsEmailVerified)
	require.NotNil(t, reg.VerificationOTP)
	assert.Regexp(t, `^\d{6}$`, *reg.VerificationOTP)

	mail := env.mailer.last()
	assert.Equal(t, "asha@example.com", mail.To)
	assert.Contains(t, mail.Body, *reg.VerificationOTP)
}

func TestSubmit_UnverifiedDuplicateReissuesOTP(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)

	first := submitVisitor(t, env, "asha@example.com")
	firstCode := *storedOTP(t, env, first.ID)

	second, err := env.manager.Submit(context.Background(), registration.SubmitInput{
		Category: model.CategoryArtist,
		Email:    "asha@example.com",
		Phone:    "+911234567890",
		FullName: "Asha Rao",
		Details:  model.ArtistDetails{ArtistName: "Asha", ArtForm: "Kathak"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.CategoryArtist, second.Category)
	assert.NotEqual(t, firstCode, *storedOTP(t, env, first.ID))

	// The first code no longer verifies.
	_, err = env.manager.ConfirmOTP(context.Background(), first.ID, firstCode)
	assert.ErrorIs(t, err, otp.ErrInvalidCode)
}

func TestSubmit_VerifiedEmailTaken(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	verifiedVisitor(t, env, "asha@example.com")

	_, err := env.manager.Submit(context.Background(), registration.SubmitInput{
		Category: model.CategoryVisitor,
		Email:    "asha@example.com",
		FullName: "Someone Else",
	})
	assert.ErrorIs(t, err, registration.ErrEmailTaken)
}

func TestSubmit_DetailsCategoryMismatch(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)

	_, err := env.manager.Submit(context.Background(), registration.SubmitInput{
		Category: model.CategoryVisitor,
		Email:    "asha@example.com",
		Details:  model.ArtistDetails{ArtistName: "Asha"},
	})
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
}

func TestConfirmOTP_ManualPolicy(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := submitVisitor(t, env, "asha@example.com")
	code := *storedOTP(t, env, reg.ID)

	verified, err := env.manager.ConfirmOTP(context.Background(), reg.ID, code)
	require.NoError(t, err)

	assert.True(t, verified.IsEmailVerified)
	assert.Equal(t, model.StatusPendingReview, verified.Status)
	assert.Nil(t, verified.VerificationOTP)
	assert.Nil(t, verified.QRID)

	_, err = env.manager.ConfirmOTP(context.Background(), reg.ID, code)
	assert.ErrorIs(t, err, otp.ErrAlreadyVerified)
}

func TestConfirmOTP_AutoPolicyIssuesTicket(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyAuto)
	reg := submitVisitor(t, env, "asha@example.com")
	code := *storedOTP(t, env, reg.ID)

	approved, err := env.manager.ConfirmOTP(context.Background(), reg.ID, code)
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.QRID)
	assert.Regexp(t, `^SEB-[A-Z0-9]{9}$`, *approved.QRID)
}

func TestConfirmOTP_WrongAndMissing(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := submitVisitor(t, env, "asha@example.com")

	_, err := env.manager.ConfirmOTP(context.Background(), reg.ID, "000000")
	assert.ErrorIs(t, err, otp.ErrInvalidCode)

	_, err = env.manager.ConfirmOTP(context.Background(), uuid.New(), "123456")
	assert.ErrorIs(t, err, database.ErrRegistrationNotFound)
}

func TestApprove_PendingReview(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")
	adminID := uuid.New()

	approved, err := env.manager.Approve(context.Background(), adminID, reg.ID, false, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.QRID)
	assert.Regexp(t, `^SEB-[A-Z0-9]{9}$`, *approved.QRID)

	mail := env.mailer.last()
	assert.Equal(t, "asha@example.com", mail.To)
	assert.Contains(t, mail.Body, *approved.QRID)
	assert.Contains(t, mail.Body, "data:image/png;base64,")

	assert.Contains(t, env.audits.actions(), "registration_approved")
}

func TestApprove_RequiresPendingReview(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := submitVisitor(t, env, "asha@example.com")

	_, err := env.manager.Approve(context.Background(), uuid.New(), reg.ID, false, "")
	assert.ErrorIs(t, err, database.ErrNotEligible)

	_, err = env.manager.Approve(context.Background(), uuid.New(), uuid.New(), false, "")
	assert.ErrorIs(t, err, database.ErrRegistrationNotFound)
}

func TestApprove_ForceFromRejected(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")
	adminID := uuid.New()

	_, err := env.manager.Reject(context.Background(), adminID, reg.ID, "incomplete documents", "")
	require.NoError(t, err)

	_, err = env.manager.Approve(context.Background(), adminID, reg.ID, false, "")
	assert.ErrorIs(t, err, database.ErrNotEligible)

	approved, err := env.manager.Approve(context.Background(), adminID, reg.ID, true, "")
	require.NoError(t, err)
	require.NotNil(t, approved.QRID)

	// A ticket is only ever issued once, forced or not.
	_, err = env.manager.Approve(context.Background(), adminID, reg.ID, true, "")
	assert.ErrorIs(t, err, database.ErrNotEligible)
}

func TestApprove_ConcurrentSingleTicket(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")
	adminID := uuid.New()

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.manager.Approve(context.Background(), adminID, reg.ID, false, "")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, database.ErrNotEligible)
		}
	}
	assert.Equal(t, 1, succeeded)

	final, err := env.store.GetRegistrationByID(context.Background(), reg.ID)
	require.NoError(t, err)
	require.NotNil(t, final.QRID)
}

func TestReject_SendsReason(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")

	rejected, err := env.manager.Reject(context.Background(), uuid.New(), reg.ID, "duplicate entry", "")
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "duplicate entry", *rejected.RejectionReason)
	assert.Contains(t, env.mailer.last().Body, "duplicate entry")
}

func TestBatchApprove_SkipsIneligible(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	eligible := verifiedVisitor(t, env, "a@example.com")
	unverified := submitVisitor(t, env, "b@example.com")
	missing := uuid.New()

	result := env.manager.BatchApprove(context.Background(), uuid.New(),
		[]uuid.UUID{eligible.ID, unverified.ID, missing}, "")

	assert.Equal(t, []uuid.UUID{eligible.ID}, result.Succeeded)
	assert.ElementsMatch(t, []uuid.UUID{unverified.ID, missing}, result.Skipped)
}

func TestBatchReject_OnlyPendingReview(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	pending := verifiedVisitor(t, env, "a@example.com")
	approvedReg := verifiedVisitor(t, env, "b@example.com")
	adminID := uuid.New()

	_, err := env.manager.Approve(context.Background(), adminID, approvedReg.ID, false, "")
	require.NoError(t, err)

	result := env.manager.BatchReject(context.Background(), adminID,
		[]uuid.UUID{pending.ID, approvedReg.ID}, "capacity reached", "")

	assert.Equal(t, []uuid.UUID{pending.ID}, result.Succeeded)
	assert.Equal(t, []uuid.UUID{approvedReg.ID}, result.Skipped)

	kept, err := env.store.GetRegistrationByID(context.Background(), approvedReg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, kept.Status)
}

func TestRemove_AuditsBeforeDelete(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")

	require.NoError(t, env.manager.Remove(context.Background(), uuid.New(), reg.ID, "10.0.0.1"))

	_, err := env.store.GetRegistrationByID(context.Background(), reg.ID)
	assert.ErrorIs(t, err, database.ErrRegistrationNotFound)
	assert.Contains(t, env.audits.actions(), "registration_deleted")

	assert.ErrorIs(t,
		env.manager.Remove(context.Background(), uuid.New(), reg.ID, ""),
		database.ErrRegistrationNotFound)
}

func TestCheckIn_Once(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")
	adminID := uuid.New()

	approved, err := env.manager.Approve(context.Background(), adminID, reg.ID, false, "")
	require.NoError(t, err)

	checked, err := env.manager.CheckIn(context.Background(), adminID, *approved.QRID, "")
	require.NoError(t, err)
	assert.True(t, checked.IsCheckedIn)
	require.NotNil(t, checked.CheckInTime)
	assert.WithinDuration(t, time.Now(), *checked.CheckInTime, 2*time.Second)

	_, err = env.manager.CheckIn(context.Background(), adminID, *approved.QRID, "")
	assert.ErrorIs(t, err, database.ErrAlreadyCheckedIn)

	_, err = env.manager.CheckIn(context.Background(), adminID, "SEB-UNKNOWN00", "")
	assert.ErrorIs(t, err, database.ErrRegistrationNotFound)
}

func TestMailFailureDoesNotBlockSubmit(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	env.mailer.fail = true

	reg := submitVisitor(t, env, "asha@example.com")
	assert.Equal(t, model.StatusPendingVerification, reg.Status)
	assert.Equal(t, 0, env.mailer.count())
}

func TestTicketEmailFallbackTemplates(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")

	_, err := env.manager.Approve(context.Background(), uuid.New(), reg.ID, false, "")
	require.NoError(t, err)

	mail := env.mailer.last()
	assert.False(t, strings.Contains(mail.Body, "{name}"))
	assert.Contains(t, mail.Body, "Asha Rao")
}

func TestSubmit_EmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	verifiedVisitor(t, env, "asha@example.com")

	_, err := env.manager.Submit(context.Background(), registration.SubmitInput{
		Category: model.CategoryVisitor,
		Email:    "Asha@Example.COM",
		Phone:    "+911234567890",
		FullName: "Asha Rao",
	})
	assert.ErrorIs(t, err, registration.ErrEmailTaken)

	// New submissions store the normalized address.
	reg := submitVisitor(t, env, "MiXed@Example.com")
	assert.Equal(t, "mixed@example.com", reg.Email)

	// A re-submission differing only by case lands on the same record.
	again, err := env.manager.Submit(context.Background(), registration.SubmitInput{
		Category: model.CategoryVisitor,
		Email:    "MIXED@example.COM",
		Phone:    "+911234567890",
		FullName: "Asha Rao",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, again.ID)
}

func TestReject_DefaultReason(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	reg := verifiedVisitor(t, env, "asha@example.com")

	rejected, err := env.manager.Reject(context.Background(), uuid.New(), reg.ID, "", "")
	require.NoError(t, err)
	require.NotNil(t, rejected.RejectionReason)
	assert.NotEmpty(t, *rejected.RejectionReason)
	assert.Contains(t, env.mailer.last().Body, *rejected.RejectionReason)
}

func TestBatchReject_DefaultReason(t *testing.T) {
	env := newTestEnv(config.ApprovalPolicyManual)
	pending := verifiedVisitor(t, env, "asha@example.com")

	result := env.manager.BatchReject(context.Background(), uuid.New(), []uuid.UUID{pending.ID}, "", "")
	require.Len(t, result.Succeeded, 1)

	stored, err := env.store.GetRegistrationByID(context.Background(), pending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RejectionReason)
	assert.NotEmpty(t, *stored.RejectionReason)
}
