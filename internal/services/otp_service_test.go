package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legaltrainer/internal/models"
)

type mockDelivery struct {
	mock.Mock
}

func (m *mockDelivery) DeliverCode(ctx context.Context, channel models.CodeChannel, identity, code string) error {
	return m.Called(channel, identity, code).Error(0)
}

// fixedCodes hands out the given codes in order, then repeats the last one.
func fixedCodes(codes ...string) func() (string, error) {
	var i atomic.Int32
	return func() (string, error) {
		n := int(i.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		return codes[n], nil
	}
}

type otpFixture struct {
	svc      OTPService
	registry CodeRegistry
	delivery *mockDelivery
	users    *memUsers
	clk      *clock
}

func newOTPFixture(t *testing.T, codes ...string) *otpFixture {
	t.Helper()
	f := &otpFixture{
		registry: NewMemoryCodeRegistry(),
		delivery: &mockDelivery{},
		users:    &memUsers{},
		clk:      newClock(),
	}
	f.delivery.On("DeliverCode", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	opts := OTPOptions{Now: f.clk.Now}
	if len(codes) > 0 {
		opts.Generate = fixedCodes(codes...)
	}
	f.svc = NewOTPService(f.registry, f.delivery, f.users, opts)
	return f
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestIssueAndVerify_Email(t *testing.T) {
	f := newOTPFixture(t, "123456")
	ctx := context.Background()

	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, " Alice@Example.com "))
	f.svc.Wait()
	f.delivery.AssertCalled(t, "DeliverCode", models.ChannelEmail, "alice@example.com", "123456")

	entry, ok := f.registry.Get("123456")
	require.True(t, ok)
	assert.Equal(t, f.clk.Now().Add(5*time.Minute), entry.ExpiresAt)

	user, err := f.svc.VerifyCode(ctx, models.ChannelEmail, "123456", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.DisplayName)
	require.NotNil(t, user.Email)
	assert.Equal(t, "alice@example.com", *user.Email)

	// single use
	_, err = f.svc.VerifyCode(ctx, models.ChannelEmail, "123456", "")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerify_ExistingUserIsReused(t *testing.T) {
	f := newOTPFixture(t, "111111", "222222")
	ctx := context.Background()

	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelPhone, "+77011234567"))
	first, err := f.svc.VerifyCode(ctx, models.ChannelPhone, "111111", "+77011234567")
	require.NoError(t, err)
	assert.Equal(t, "+77011234567", first.DisplayName)

	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelPhone, "+77011234567"))
	second, err := f.svc.VerifyCode(ctx, models.ChannelPhone, "222222", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.users.users, 1)
	f.svc.Wait()
}

func TestVerify_UnknownCode(t *testing.T) {
	f := newOTPFixture(t)
	_, err := f.svc.VerifyCode(context.Background(), models.ChannelEmail, "654321", "")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, 0, f.registry.Len())
}

func TestVerify_Expired(t *testing.T) {
	f := newOTPFixture(t, "123456")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelBot, "987654321"))
	f.svc.Wait()

	f.clk.Advance(5*time.Minute + time.Second)
	_, err := f.svc.VerifyCode(ctx, models.ChannelBot, "123456", "")
	assert.ErrorIs(t, err, ErrCodeExpired)
	assert.Equal(t, 0, f.registry.Len(), "expired code is removed")

	_, err = f.svc.VerifyCode(ctx, models.ChannelBot, "123456", "")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerify_AtExpiryBoundaryStillValid(t *testing.T) {
	f := newOTPFixture(t, "123456")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelBot, "42"))
	f.svc.Wait()

	f.clk.Advance(5 * time.Minute)
	_, err := f.svc.VerifyCode(ctx, models.ChannelBot, "123456", "")
	assert.NoError(t, err)
}

func TestVerify_IdentityMismatchKeepsCode(t *testing.T) {
	f := newOTPFixture(t, "123456")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "owner@example.com"))
	f.svc.Wait()

	_, err := f.svc.VerifyCode(ctx, models.ChannelEmail, "123456", "intruder@example.com")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, 1, f.registry.Len())

	user, err := f.svc.VerifyCode(ctx, models.ChannelEmail, "123456", "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "owner", user.DisplayName)
}

func TestVerify_ChannelMismatch(t *testing.T) {
	f := newOTPFixture(t, "123456")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "owner@example.com"))
	f.svc.Wait()

	_, err := f.svc.VerifyCode(ctx, models.ChannelPhone, "123456", "")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, 1, f.registry.Len())
}

func TestIssue_InvalidIdentity(t *testing.T) {
	tests := []struct {
		name     string
		channel  models.CodeChannel
		identity string
		field    string
	}{
		{"bad email", models.ChannelEmail, "not-an-email", "email"},
		{"empty email", models.ChannelEmail, "  ", "email"},
		{"short phone", models.ChannelPhone, "12345", "phone"},
		{"letters in chat id", models.ChannelBot, "abc", "chat_id"},
		{"unknown channel", models.CodeChannel("fax"), "1", "channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOTPFixture(t)
			err := f.svc.IssueCode(context.Background(), tt.channel, tt.identity)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, 0, f.registry.Len())
			f.delivery.AssertNotCalled(t, "DeliverCode", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestIssue_CollisionRedraws(t *testing.T) {
	f := newOTPFixture(t, "111111", "111111", "222222")
	ctx := context.Background()

	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "a@example.com"))
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "b@example.com"))
	f.svc.Wait()

	first, _ := f.registry.Get("111111")
	second, _ := f.registry.Get("222222")
	assert.Equal(t, "a@example.com", first.Identity, "live code is not overwritten")
	assert.Equal(t, "b@example.com", second.Identity)
}

func TestIssue_CollisionExhausted(t *testing.T) {
	f := newOTPFixture(t, "111111")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "a@example.com"))
	err := f.svc.IssueCode(ctx, models.ChannelEmail, "b@example.com")
	assert.Error(t, err)
	f.svc.Wait()
}

func TestIssue_ExpiredCodeCanBeReissued(t *testing.T) {
	f := newOTPFixture(t, "111111")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "a@example.com"))
	f.clk.Advance(6 * time.Minute)
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "b@example.com"))
	f.svc.Wait()

	e, _ := f.registry.Get("111111")
	assert.Equal(t, "b@example.com", e.Identity)
}

func TestIssue_DeliveryFailureIsSwallowed(t *testing.T) {
	registry := NewMemoryCodeRegistry()
	delivery := &mockDelivery{}
	delivery.On("DeliverCode", models.ChannelPhone, "+77011234567", "123456").Return(errors.New("gateway down")).Once()
	svc := NewOTPService(registry, delivery, &memUsers{}, OTPOptions{Generate: fixedCodes("123456")})

	require.NoError(t, svc.IssueCode(context.Background(), models.ChannelPhone, "+77011234567"))
	svc.Wait()
	delivery.AssertExpectations(t)

	// the code stays valid even though delivery failed
	_, err := svc.VerifyCode(context.Background(), models.ChannelPhone, "123456", "")
	assert.NoError(t, err)
}

func TestIssue_DeliveryDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	registry := NewMemoryCodeRegistry()
	delivery := &mockDelivery{}
	delivery.On("DeliverCode", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).Return(nil)
	svc := NewOTPService(registry, delivery, &memUsers{}, OTPOptions{})

	done := make(chan error, 1)
	go func() { done <- svc.IssueCode(context.Background(), models.ChannelBot, "77") }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("IssueCode waited for delivery")
	}
	close(release)
	svc.Wait()
}

func TestVerify_ConcurrentSingleWinner(t *testing.T) {
	f := newOTPFixture(t, "123456")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "race@example.com"))
	f.svc.Wait()

	const n = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.VerifyCode(ctx, models.ChannelEmail, "123456", ""); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCode)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Len(t, f.users.users, 1)
}

func TestVerify_UserStoreFailure(t *testing.T) {
	f := newOTPFixture(t, "123456")
	f.users.findErr = errors.New("db down")
	ctx := context.Background()
	require.NoError(t, f.svc.IssueCode(ctx, models.ChannelEmail, "a@example.com"))
	f.svc.Wait()

	_, err := f.svc.VerifyCode(ctx, models.ChannelEmail, "123456", "")
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 0, f.registry.Len(), "code is consumed before the user lookup")
}

func TestDisplayNameFor(t *testing.T) {
	assert.Equal(t, "jane.doe", DisplayNameFor(models.ChannelEmail, "jane.doe@law.kz"))
	assert.Equal(t, "+77011234567", DisplayNameFor(models.ChannelPhone, "+77011234567"))
	assert.Equal(t, "123456789", DisplayNameFor(models.ChannelBot, "123456789"))
}
