package mfa

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Krishna101010101010/Bio-pay/internal/mfa/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/mfa/repository"
)

// ChallengeConfig holds the OTP lifetime rules.
type ChallengeConfig struct {
	// TTL is how long an issued OTP can be verified.
	TTL time.Duration
	// VerifiedTTL is how long a successful verification stays usable by login.
	VerifiedTTL time.Duration
	// MaxAttempts is the number of wrong codes tolerated before the challenge is discarded.
	MaxAttempts int
}

// ChallengeService issues OTPs, verifies them and tracks which mobiles passed verification.
type ChallengeService struct {
	repo   repository.Repository
	hasher *Hasher
	cfg    ChallengeConfig
	now    func() time.Time
}

// NewChallengeService returns a service over repo. Zero config values fall back to
// 5m TTL, 10m verified TTL and 3 attempts.
func NewChallengeService(repo repository.Repository, hasher *Hasher, cfg ChallengeConfig) *ChallengeService {
	if cfg.TTL <= 0 {
		cfg.TTL = repository.DefaultChallengeTTL
	}
	if cfg.VerifiedTTL <= 0 {
		cfg.VerifiedTTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &ChallengeService{repo: repo, hasher: hasher, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Issue generates a fresh OTP for mobile and stores its hash, replacing any outstanding challenge.
// The plain code is returned for delivery and must not be logged.
func (s *ChallengeService) Issue(ctx context.Context, mobile string) (otp string, expiresAt time.Time, err error) {
	otp, err = GenerateOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	hash, err := s.hasher.Hash(otp)
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now()
	c := &domain.Challenge{
		ID:          uuid.New().String(),
		Mobile:      mobile,
		CodeHash:    hash,
		MaxAttempts: s.cfg.MaxAttempts,
		ExpiresAt:   now.Add(s.cfg.TTL),
		CreatedAt:   now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return "", time.Time{}, err
	}
	return otp, c.ExpiresAt, nil
}

// Verify checks code against the outstanding challenge for mobile. A match consumes the challenge
// and marks mobile verified. Failures return one of the domain Err* values; expired and exhausted
// challenges are discarded.
func (s *ChallengeService) Verify(ctx context.Context, mobile, code string) error {
	c, err := s.repo.Get(ctx, mobile)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.ErrChallengeNotFound
	}
	now := s.now()
	if c.Expired(now) {
		_ = s.repo.Delete(ctx, mobile)
		return domain.ErrChallengeExpired
	}
	if c.Exhausted() {
		_ = s.repo.Delete(ctx, mobile)
		return domain.ErrTooManyAttempts
	}
	if !s.hasher.Equal(code, c.CodeHash) {
		n, err := s.repo.IncrementAttempts(ctx, mobile)
		if err != nil {
			return err
		}
		if n >= c.MaxAttempts {
			_ = s.repo.Delete(ctx, mobile)
			return domain.ErrTooManyAttempts
		}
		return domain.ErrCodeMismatch
	}
	if err := s.repo.Delete(ctx, mobile); err != nil {
		return err
	}
	return s.repo.MarkVerified(ctx, mobile, now.Add(s.cfg.VerifiedTTL))
}

// IsVerified reports whether mobile passed verification recently.
func (s *ChallengeService) IsVerified(ctx context.Context, mobile string) (bool, error) {
	return s.repo.IsVerified(ctx, mobile, s.now())
}

// ConsumeVerified spends the verification of mobile; a second call returns false.
func (s *ChallengeService) ConsumeVerified(ctx context.Context, mobile string) (bool, error) {
	return s.repo.ConsumeVerified(ctx, mobile, s.now())
}
