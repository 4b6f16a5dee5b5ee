package account

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Insert(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmailAndResetCode(ctx context.Context, email, resetCode string) (*domain.User, error) {
	args := m.Called(ctx, email, resetCode)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockTokenSigner struct{ mock.Mock }

func (m *mockTokenSigner) Sign(username string) (string, error) {
	args := m.Called(username)
	return args.String(0), args.Error(1)
}

func newService(us *mockUserStore, ml *mockMailer, ts *mockTokenSigner) Service {
	return NewService(ServiceDeps{UserRepo: us, Mailer: ml, Tokens: ts})
}

func strPtr(s string) *string { return &s }

func mustHash(t *testing.T, plaintext string) string {
	t.Helper()
	h, err := password.Hash(plaintext)
	require.NoError(t, err)
	return h
}

// --- Register ---

func TestRegister_PolicyFailure(t *testing.T) {
	svc := newService(nil, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "short",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRegister_UsernameTaken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{Username: "alice"}, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "b@y.com", Password: "Passw0rd!",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegister_EmailTaken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "bob").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{Email: "a@x.com"}, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "bob", Email: "a@x.com", Password: "Passw0rd!",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegister_StoreLevelConflict(t *testing.T) {
	// Pre-checks pass but the transactional insert loses the race.
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Insert", mock.Anything, mock.AnythingOfType("*domain.User")).Return(domain.ErrConflict)

	svc := newService(us, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "Passw0rd!",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Insert", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	ml.On("SendEmail", "a@x.com", verificationSubject, mock.Anything).Return(nil)

	svc := newService(us, ml, nil)
	u, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "Passw0rd!",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "Passw0rd!", u.PasswordHash)

	require.NotNil(t, u.VerificationCode)
	n, err := strconv.Atoi(*u.VerificationCode)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1000)
	assert.LessOrEqual(t, n, 9999)

	us.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestRegister_MailFailureIsSwallowed(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, domain.ErrNotFound)
	us.On("Insert", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(us, ml, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Username: "alice", Email: "a@x.com", Password: "Passw0rd!",
	})
	require.NoError(t, err)
}

// --- Verify ---

func TestVerify_UserNotFound(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	_, err := svc.Verify(context.Background(), "ghost", "1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_AlreadyVerified_Idempotent(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", IsVerified: true,
	}, nil)

	svc := newService(us, nil, nil)
	res, err := svc.Verify(context.Background(), "alice", "0000")
	require.NoError(t, err)
	assert.True(t, res.AlreadyVerified)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_WrongCode(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", VerificationCode: strPtr("1234"),
	}, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Verify(context.Background(), "alice", "0000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_CorrectCode_ClearsAndTransitions(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", VerificationCode: strPtr("1234"),
	}, nil)
	us.On("Update", mock.Anything, "u1", map[string]interface{}{
		fieldIsVerified:       true,
		fieldVerificationCode: nil,
	}).Return(nil)

	svc := newService(us, nil, nil)
	res, err := svc.Verify(context.Background(), "alice", "1234")
	require.NoError(t, err)
	assert.False(t, res.AlreadyVerified)
	us.AssertExpectations(t)
}

// --- Login ---

func TestLogin_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	_, _, err := svc.Login(context.Background(), "ghost", "Passw0rd!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword_SameError(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", PasswordHash: mustHash(t, "Passw0rd!"), IsVerified: true,
	}, nil)
	us.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	_, _, errWrongPass := svc.Login(context.Background(), "alice", "wrong")
	_, _, errUnknown := svc.Login(context.Background(), "ghost", "wrong")

	require.Error(t, errWrongPass)
	require.Error(t, errUnknown)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
	assert.True(t, errors.Is(errWrongPass, domain.ErrUnauthorized))
}

func TestLogin_Unverified_Forbidden(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", PasswordHash: mustHash(t, "Passw0rd!"),
	}, nil)

	svc := newService(us, nil, nil)
	_, _, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ts := &mockTokenSigner{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", PasswordHash: mustHash(t, "Passw0rd!"), IsVerified: true,
	}, nil)
	ts.On("Sign", "alice").Return("signed.jwt", nil)

	svc := newService(us, nil, ts)
	bearer, u, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt", bearer)
	assert.Equal(t, "alice", u.Username)
	ts.AssertExpectations(t)
}

// --- ForgotPassword ---

func TestForgotPassword_UnknownEmail_GenericSuccess(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "nobody@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	err := svc.ForgotPassword(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestForgotPassword_UnverifiedAccount_GenericSuccess(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{
		UserID: "u1", Username: "alice", Email: "a@x.com",
	}, nil)

	svc := newService(us, nil, nil)
	err := svc.ForgotPassword(context.Background(), "a@x.com")
	require.NoError(t, err)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestForgotPassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{
		UserID: "u1", Username: "alice", Email: "a@x.com", IsVerified: true,
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		c, ok := m[fieldResetCode].(string)
		return ok && len(c) == 4
	})).Return(nil)
	ml.On("SendEmail", "a@x.com", resetSubject, mock.Anything).Return(nil)

	svc := newService(us, ml, nil)
	err := svc.ForgotPassword(context.Background(), "a@x.com")
	require.NoError(t, err)
	us.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestForgotPassword_MailFailure_StillSuccess(t *testing.T) {
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.User{
		UserID: "u1", Username: "alice", Email: "a@x.com", IsVerified: true,
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(us, ml, nil)
	err := svc.ForgotPassword(context.Background(), "a@x.com")
	require.NoError(t, err)
}

// --- ResetPassword ---

func TestResetPassword_NoMatch(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmailAndResetCode", mock.Anything, "a@x.com", "0000").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	err := svc.ResetPassword(context.Background(), "a@x.com", "0000", "NewPassw0rd!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCode))
}

func TestResetPassword_PolicyFailure(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmailAndResetCode", mock.Anything, "a@x.com", "1234").Return(&domain.User{
		UserID: "u1", ResetCode: strPtr("1234"),
	}, nil)

	svc := newService(us, nil, nil)
	err := svc.ResetPassword(context.Background(), "a@x.com", "1234", "weak")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmailAndResetCode", mock.Anything, "a@x.com", "1234").Return(&domain.User{
		UserID: "u1", ResetCode: strPtr("1234"),
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		_, hasHash := m[fieldPasswordHash].(string)
		cleared, present := m[fieldResetCode]
		return hasHash && present && cleared == nil
	})).Return(nil)

	svc := newService(us, nil, nil)
	err := svc.ResetPassword(context.Background(), "a@x.com", "1234", "NewPassw0rd!")
	require.NoError(t, err)
	us.AssertExpectations(t)
}

// --- CurrentUser ---

func TestCurrentUser_OK(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID: "u1", Username: "alice", IsVerified: true,
	}, nil)

	svc := newService(us, nil, nil)
	u, err := svc.CurrentUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestCurrentUser_SubjectGone(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	_, err := svc.CurrentUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
