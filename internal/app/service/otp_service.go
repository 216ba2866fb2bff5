package service

import (
	"context"
	"errors"
	"fmt"
	"hackathon_portal/internal/app/ratelimit"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"hackathon_portal/internal/platform/mail"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOtpNotFound     = common.NewError(common.CodeOTPNotFound, "No pending verification code, please request a new one")
	ErrOtpExpired      = common.NewError(common.CodeOTPExpired, "Verification code has expired, please request a new one")
	ErrTooManyAttempts = common.NewError(common.CodeTooManyAttempts, "Too many incorrect attempts, please request a new code")
	// The message does not say whether the address is taken by someone else.
	ErrAlreadyRegistered = common.NewError(common.CodeAlreadyRegistered, "This email cannot be used to register a new team")
)

var otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// MailDispatcher hands a message to the delivery pipeline.
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg mail.Message) error
}

type OtpLimits struct {
	IPLimit     int
	IPWindow    time.Duration
	EmailLimit  int
	EmailWindow time.Duration
}

type OtpService struct {
	otpRepo  repository.OtpRepository
	userRepo repository.UserRepository
	teamRepo repository.TeamRepository
	limiter  ratelimit.Limiter
	mailer   MailDispatcher
	ttl      time.Duration
	limits   OtpLimits
	now      func() time.Time
}

func NewOtpService(otpRepo repository.OtpRepository, userRepo repository.UserRepository, teamRepo repository.TeamRepository,
	limiter ratelimit.Limiter, mailer MailDispatcher, ttl time.Duration, limits OtpLimits) *OtpService {
	return &OtpService{
		otpRepo:  otpRepo,
		userRepo: userRepo,
		teamRepo: teamRepo,
		limiter:  limiter,
		mailer:   mailer,
		ttl:      ttl,
		limits:   limits,
		now:      time.Now,
	}
}

type SendOtpRequest struct {
	Email   string           `json:"email"`
	Purpose model.OtpPurpose `json:"purpose"`
}

type SendOtpResult struct {
	ExpiresAt time.Time        `json:"expires_at"`
	RateLimit ratelimit.Result `json:"-"`
}

type VerifyOtpRequest struct {
	Email   string           `json:"email"`
	Purpose model.OtpPurpose `json:"purpose"`
	Code    string           `json:"code"`
}

func normalizePurpose(p model.OtpPurpose) model.OtpPurpose {
	if p == "" {
		return model.OtpRegistration
	}
	return p
}

func (s *OtpService) Send(ctx context.Context, req SendOtpRequest, clientIP string) (*SendOtpResult, error) {
	email := common.NormalizeEmail(req.Email)
	purpose := normalizePurpose(req.Purpose)

	v := common.NewValidator()
	v.Email("email", email)
	v.Check(purpose.Valid(), "purpose", "must be REGISTRATION or LOGIN")
	if err := v.Err(); err != nil {
		return nil, err
	}

	ipResult, err := s.limiter.Allow(ctx, "otp:ip:"+clientIP, s.limits.IPLimit, s.limits.IPWindow)
	if err != nil {
		return nil, fmt.Errorf("otp ip rate limit: %w", err)
	}
	if !ipResult.Allowed {
		return nil, ipResult.Err()
	}
	emailResult, err := s.limiter.Allow(ctx, "otp:email:"+email, s.limits.EmailLimit, s.limits.EmailWindow)
	if err != nil {
		return nil, fmt.Errorf("otp email rate limit: %w", err)
	}
	if !emailResult.Allowed {
		return nil, emailResult.Err()
	}

	if purpose == model.OtpRegistration {
		registered, err := s.teamRepo.IsEmailRegistered(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check registration: %w", err)
		}
		if registered {
			return nil, ErrAlreadyRegistered
		}
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return nil, err
	}
	otp := &model.Otp{
		ID:        uuid.NewString(),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  security.HashOTP(code),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.otpRepo.Upsert(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	if err := s.mailer.Dispatch(ctx, mail.OTPMessage(email, code, int(s.ttl/time.Minute))); err != nil {
		log.Printf("ERROR: Failed to dispatch OTP mail to %s: %v", email, err)
		return nil, common.Wrap(err, common.CodeServiceUnavailable, "Could not send the verification email, please try again")
	}

	return &SendOtpResult{ExpiresAt: otp.ExpiresAt, RateLimit: emailResult}, nil
}

// Verify consumes a code. On success the email's user is created or marked
// verified and returned; the caller starts the session.
func (s *OtpService) Verify(ctx context.Context, req VerifyOtpRequest) (*model.User, error) {
	email := common.NormalizeEmail(req.Email)
	purpose := normalizePurpose(req.Purpose)

	v := common.NewValidator()
	v.Email("email", email)
	v.Check(purpose.Valid(), "purpose", "must be REGISTRATION or LOGIN")
	v.Check(otpCodePattern.MatchString(req.Code), "code", "must be a 6 digit code")
	if err := v.Err(); err != nil {
		return nil, err
	}

	otp, err := s.otpRepo.Find(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, fmt.Errorf("failed to load otp: %w", err)
	}
	if otp.Verified {
		return nil, ErrOtpNotFound
	}

	if s.now().After(otp.ExpiresAt) {
		if err := s.otpRepo.Delete(ctx, otp.ID); err != nil {
			log.Printf("WARN: Failed to delete expired otp %s: %v", otp.ID, err)
		}
		return nil, ErrOtpExpired
	}

	if !security.VerifyOTP(req.Code, otp.CodeHash) {
		attempts, err := s.otpRepo.IncrementAttempts(ctx, otp.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, ErrOtpNotFound
			}
			return nil, fmt.Errorf("failed to record otp attempt: %w", err)
		}
		if attempts >= model.MaxOtpAttempts {
			if err := s.otpRepo.Delete(ctx, otp.ID); err != nil {
				log.Printf("WARN: Failed to delete exhausted otp %s: %v", otp.ID, err)
			}
			return nil, ErrTooManyAttempts
		}
		return nil, common.NewError(common.CodeInvalidOTP,
			fmt.Sprintf("Invalid verification code, %d attempts remaining", model.MaxOtpAttempts-attempts))
	}

	if err := s.otpRepo.MarkVerified(ctx, otp.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, fmt.Errorf("failed to mark otp verified: %w", err)
	}

	user, err := s.userRepo.UpsertVerified(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// CurrentUser resolves the user id stored in a participant session.
func (s *OtpService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, common.ErrUnauthorized
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
