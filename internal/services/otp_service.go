package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
	"legaltrainer/internal/utils"
	"legaltrainer/internal/validation"
)

const (
	defaultCodeTTL   = 5 * time.Minute
	issueAttempts    = 5
	deliveryTimeout  = 30 * time.Second
	codeMin, codeMax = 100000, 999999
)

// OTPService issues and verifies one-time sign-in codes over email, SMS and the bot.
type OTPService interface {
	IssueCode(ctx context.Context, channel models.CodeChannel, identity string) error
	// VerifyCode consumes code. expectedIdentity is optional; when set it must
	// match the identity the code was issued to.
	VerifyCode(ctx context.Context, channel models.CodeChannel, code, expectedIdentity string) (*models.User, error)
	// Wait blocks until in-flight deliveries finish.
	Wait()
}

type OTPOptions struct {
	TTL      time.Duration
	Now      func() time.Time
	Generate func() (string, error)
}

type otpService struct {
	registry CodeRegistry
	delivery CodeDelivery
	users    repositories.UserRepository
	validate *validator.Validate

	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)

	inflight sync.WaitGroup
}

func NewOTPService(registry CodeRegistry, delivery CodeDelivery, users repositories.UserRepository, opts OTPOptions) OTPService {
	s := &otpService{
		registry: registry,
		delivery: delivery,
		users:    users,
		validate: validation.New(),
		ttl:      opts.TTL,
		now:      opts.Now,
		generate: opts.Generate,
	}
	if s.ttl <= 0 {
		s.ttl = defaultCodeTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generate == nil {
		s.generate = generateCode
	}
	return s
}

// generateCode returns a uniform 6-digit code in 100000..999999.
func generateCode() (string, error) {
	return utils.NewNumericCode(codeMin, codeMax)
}

func (s *otpService) normalize(channel models.CodeChannel, identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	switch channel {
	case models.ChannelEmail:
		identity = strings.ToLower(identity)
		if err := s.validate.Var(identity, "required,email"); err != nil {
			return "", invalid("email", "must be a valid email address")
		}
	case models.ChannelPhone:
		if err := s.validate.Var(identity, "required,phone"); err != nil {
			return "", invalid("phone", "must contain 10 to 15 digits")
		}
	case models.ChannelBot:
		if err := s.validate.Var(identity, "required,numeric"); err != nil {
			return "", invalid("chat_id", "must be numeric")
		}
	default:
		return "", invalid("channel", fmt.Sprintf("unknown channel %q", channel))
	}
	return identity, nil
}

func (s *otpService) IssueCode(ctx context.Context, channel models.CodeChannel, identity string) error {
	identity, err := s.normalize(channel, identity)
	if err != nil {
		return err
	}

	now := s.now()
	var entry models.AuthCode
	bound := false
	for i := 0; i < issueAttempts && !bound; i++ {
		code, err := s.generate()
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		entry = models.AuthCode{
			Code:      code,
			Channel:   channel,
			Identity:  identity,
			ExpiresAt: now.Add(s.ttl),
		}
		// a live code is never overwritten; draw again on collision
		bound = s.registry.Put(entry, now)
	}
	if !bound {
		return fmt.Errorf("issue code: no free code after %d attempts", issueAttempts)
	}
	log.Printf("[auth][code][issue] channel=%s identity=%s expires_at=%s",
		channel, identity, entry.ExpiresAt.Format(time.RFC3339))

	// delivery never blocks or fails the caller
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		if err := s.delivery.DeliverCode(dctx, channel, identity, entry.Code); err != nil {
			log.Printf("[auth][code][deliver] failed channel=%s identity=%s err=%v", channel, identity, err)
			return
		}
		log.Printf("[auth][code][deliver] ok channel=%s identity=%s", channel, identity)
	}()
	return nil
}

func (s *otpService) VerifyCode(ctx context.Context, channel models.CodeChannel, code, expectedIdentity string) (*models.User, error) {
	code = strings.TrimSpace(code)
	entry, ok := s.registry.Get(code)
	if !ok || entry.Channel != channel {
		return nil, ErrInvalidCode
	}

	if expectedIdentity != "" {
		want, err := s.normalize(channel, expectedIdentity)
		if err != nil || want != entry.Identity {
			// the code stays usable for its rightful owner
			log.Printf("[auth][code][verify] identity mismatch channel=%s", channel)
			return nil, ErrInvalidCode
		}
	}

	if entry.Expired(s.now()) {
		s.registry.Take(code, entry)
		log.Printf("[auth][code][verify] expired channel=%s identity=%s", channel, entry.Identity)
		return nil, ErrCodeExpired
	}

	if !s.registry.Take(code, entry) {
		// consumed by a concurrent verification
		return nil, ErrInvalidCode
	}

	user, err := s.resolveUser(ctx, channel, entry.Identity)
	if err != nil {
		return nil, err
	}
	log.Printf("[auth][code][verify] ok channel=%s user_id=%d", channel, user.ID)
	return user, nil
}

func (s *otpService) resolveUser(ctx context.Context, channel models.CodeChannel, identity string) (*models.User, error) {
	kind := channel.IdentityKind()
	u, err := s.users.FindByIdentity(ctx, kind, identity)
	if err != nil {
		return nil, storageErr("resolve user", err)
	}
	if u != nil {
		return u, nil
	}

	u = &models.User{DisplayName: DisplayNameFor(channel, identity)}
	id := identity
	switch channel {
	case models.ChannelEmail:
		u.Email = &id
	case models.ChannelPhone:
		u.Phone = &id
	case models.ChannelBot:
		u.BotIdentity = &id
	}
	err = s.users.Create(ctx, u)
	if errors.Is(err, repositories.ErrDuplicate) {
		// created concurrently by another verification
		existing, ferr := s.users.FindByIdentity(ctx, kind, identity)
		if ferr != nil || existing == nil {
			return nil, storageErr("resolve user", fmt.Errorf("reload after duplicate: %v", ferr))
		}
		return existing, nil
	}
	if err != nil {
		return nil, storageErr("create user", err)
	}
	log.Printf("[auth][user][create] user_id=%d via=%s", u.ID, channel)
	return u, nil
}

// DisplayNameFor derives a display name from a channel identity:
// the local part of an email, the raw phone number or bot chat id otherwise.
func DisplayNameFor(channel models.CodeChannel, identity string) string {
	if channel == models.ChannelEmail {
		if at := strings.IndexByte(identity, '@'); at > 0 {
			return identity[:at]
		}
	}
	return identity
}

func (s *otpService) Wait() { s.inflight.Wait() }
