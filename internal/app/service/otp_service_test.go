package service

import (
	"context"
	"errors"
	"hackathon_portal/internal/app/ratelimit"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otpFixture struct {
	svc    *OtpService
	otps   *fakeOtpRepo
	users  *fakeUserRepo
	teams  *fakeTeamRepo
	mailer *fakeMailer
}

func newOtpFixture(limits OtpLimits) *otpFixture {
	f := &otpFixture{
		otps:   newFakeOtpRepo(),
		users:  newFakeUserRepo(),
		teams:  newFakeTeamRepo(),
		mailer: &fakeMailer{},
	}
	f.svc = NewOtpService(f.otps, f.users, f.teams, ratelimit.NewMemoryLimiter(), f.mailer, 10*time.Minute, limits)
	f.svc.now = fixedClock
	return f
}

func generousLimits() OtpLimits {
	return OtpLimits{IPLimit: 100, IPWindow: time.Hour, EmailLimit: 100, EmailWindow: time.Hour}
}

var mailedCode = regexp.MustCompile(`\b[0-9]{6}\b`)

// lastCode pulls the code out of the most recent verification email.
func (f *otpFixture) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.mailer.sent)
	code := mailedCode.FindString(f.mailer.sent[len(f.mailer.sent)-1].Body)
	require.NotEmpty(t, code)
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestOtpSendAndVerify(t *testing.T) {
	f := newOtpFixture(generousLimits())
	ctx := context.Background()

	res, err := f.svc.Send(ctx, SendOtpRequest{Email: "  Ada@Example.com "}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(10*time.Minute), res.ExpiresAt)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ada@example.com", f.mailer.sent[0].To)

	stored, err := f.otps.Find(ctx, "ada@example.com", model.OtpRegistration)
	require.NoError(t, err)
	code := f.lastCode(t)
	assert.NotEqual(t, code, stored.CodeHash)

	user, err := f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: code})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.EmailVerified)

	// A code can only be consumed once.
	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: code})
	assert.ErrorIs(t, err, ErrOtpNotFound)
}

func TestOtpWrongGuessesExhaustCode(t *testing.T) {
	f := newOtpFixture(generousLimits())
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	code := f.lastCode(t)
	bad := VerifyOtpRequest{Email: "ada@example.com", Code: wrongCode(code)}

	for i := 1; i < model.MaxOtpAttempts; i++ {
		_, err := f.svc.Verify(ctx, bad)
		assert.Equal(t, common.CodeInvalidOTP, common.CodeFromError(err), "attempt %d", i)
	}
	_, err = f.svc.Verify(ctx, bad)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// The exhausted code is gone, even the right guess is refused now.
	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: code})
	assert.ErrorIs(t, err, ErrOtpNotFound)
}

func TestOtpResendResetsAttempts(t *testing.T) {
	f := newOtpFixture(generousLimits())
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	first := f.lastCode(t)
	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: wrongCode(first)})
	require.Error(t, err)

	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	stored, err := f.otps.Find(ctx, "ada@example.com", model.OtpRegistration)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Attempts)

	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: f.lastCode(t)})
	assert.NoError(t, err)
}

func TestOtpExpired(t *testing.T) {
	f := newOtpFixture(generousLimits())
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	code := f.lastCode(t)

	f.svc.now = func() time.Time { return testNow.Add(11 * time.Minute) }
	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: code})
	assert.ErrorIs(t, err, ErrOtpExpired)
	assert.Empty(t, f.otps.otps)
}

func TestOtpEmailRateLimit(t *testing.T) {
	f := newOtpFixture(OtpLimits{IPLimit: 100, IPWindow: time.Hour, EmailLimit: 3, EmailWindow: 10 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
		require.NoError(t, err)
	}
	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	var rl *common.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 3, rl.Limit)
	assert.Equal(t, 0, rl.Remaining)
	assert.Len(t, f.mailer.sent, 3)

	// A different address is counted separately.
	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "grace@example.com"}, "10.0.0.1")
	assert.NoError(t, err)
}

func TestOtpIPRateLimit(t *testing.T) {
	f := newOtpFixture(OtpLimits{IPLimit: 2, IPWindow: time.Hour, EmailLimit: 100, EmailWindow: time.Hour})
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "a@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "b@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "c@example.com"}, "10.0.0.1")
	assert.Equal(t, common.CodeRateLimitExceeded, common.CodeFromError(err))

	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "c@example.com"}, "10.0.0.2")
	assert.NoError(t, err)
}

func TestOtpRegistrationRejectsRegisteredEmail(t *testing.T) {
	f := newOtpFixture(generousLimits())
	f.teams.addTeam("Rocket", model.TrackBuildStorm, model.TeamPending, "ada@example.com")
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com", Purpose: model.OtpRegistration}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Empty(t, f.mailer.sent)

	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com", Purpose: model.OtpLogin}, "10.0.0.1")
	assert.NoError(t, err)
}

func TestOtpMailFailure(t *testing.T) {
	f := newOtpFixture(generousLimits())
	f.mailer.err = errors.New("smtp down")

	_, err := f.svc.Send(context.Background(), SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	assert.Equal(t, common.CodeServiceUnavailable, common.CodeFromError(err))
}

func TestOtpValidation(t *testing.T) {
	f := newOtpFixture(generousLimits())
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "not-an-email"}, "10.0.0.1")
	assert.Equal(t, common.CodeValidation, common.CodeFromError(err))

	_, err = f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com", Purpose: "RESET"}, "10.0.0.1")
	assert.Equal(t, common.CodeValidation, common.CodeFromError(err))

	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: "12ab56"})
	assert.Equal(t, common.CodeValidation, common.CodeFromError(err))

	_, err = f.svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: "123456"})
	assert.ErrorIs(t, err, ErrOtpNotFound)
}

func TestCurrentUser(t *testing.T) {
	f := newOtpFixture(generousLimits())
	u := f.users.add("ada@example.com", true)

	got, err := f.svc.CurrentUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = f.svc.CurrentUser(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = f.svc.CurrentUser(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

// interleavedOtpRepo runs hook once, right after the first Find, to
// simulate a second request verifying the same code in between.
type interleavedOtpRepo struct {
	*fakeOtpRepo
	hook func()
}

func (r *interleavedOtpRepo) Find(ctx context.Context, email string, purpose model.OtpPurpose) (*model.Otp, error) {
	otp, err := r.fakeOtpRepo.Find(ctx, email, purpose)
	if hook := r.hook; hook != nil {
		r.hook = nil
		hook()
	}
	return otp, err
}

func TestOtpVerifyConcurrentConsumesOnce(t *testing.T) {
	f := newOtpFixture(generousLimits())
	ctx := context.Background()
	_, err := f.svc.Send(ctx, SendOtpRequest{Email: "ada@example.com"}, "10.0.0.1")
	require.NoError(t, err)
	code := f.lastCode(t)

	repo := &interleavedOtpRepo{fakeOtpRepo: f.otps}
	svc := NewOtpService(repo, f.users, f.teams, ratelimit.NewMemoryLimiter(), f.mailer, 10*time.Minute, generousLimits())
	svc.now = fixedClock

	var innerErr error
	repo.hook = func() {
		_, innerErr = svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: code})
	}
	_, outerErr := svc.Verify(ctx, VerifyOtpRequest{Email: "ada@example.com", Code: code})

	require.NoError(t, innerErr)
	assert.Equal(t, common.CodeOTPNotFound, common.CodeFromError(outerErr))
}
