package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stayease/internal/api"
	"stayease/internal/events"
	"stayease/internal/model"
	"stayease/internal/persist"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Login(ctx context.Context, creds model.Credentials) (model.LoginPayload, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(model.LoginPayload), args.Error(1)
}

func (m *mockAuth) Register(ctx context.Context, profile model.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func newSessionStore(t *testing.T, auth AuthClient, storage persist.SessionStorage, bus *events.EventBus) *SessionStore {
	t.Helper()
	logger := zerolog.New(io.Discard)
	return NewSessionStore(auth, storage, Options{Bus: bus, Logger: &logger})
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "guest@example.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

var guest = model.Credentials{Email: "guest@example.com", Password: "pw"}

func TestLoginStoresSessionInMemoryAndDurably(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: "tok", Role: "ROLE_customer", UserID: 42}, nil)

	storage := persist.NewMemory()
	bus := events.NewEventBus()
	var changes []events.SessionPayload
	bus.Subscribe(events.SessionChanged, func(e events.Event) error {
		changes = append(changes, e.Payload.(events.SessionPayload))
		return nil
	})
	s := newSessionStore(t, auth, storage, bus)

	session, err := s.Login(context.Background(), guest)
	require.NoError(t, err)
	assert.Equal(t, model.Session{Token: "tok", Role: model.RoleCustomer, UserID: 42}, session)
	assert.Equal(t, "tok", s.Token())
	assert.False(t, s.State().Loading)
	assert.NoError(t, s.State().Err)

	raw, err := storage.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"token":"tok"`)
	assert.Contains(t, string(raw), `"role":"CUSTOMER"`)
	assert.Contains(t, string(raw), `"userId":42`)

	require.Len(t, changes, 1)
	assert.True(t, changes[0].Authenticated)
	auth.AssertExpectations(t)
}

func TestLoginFailureLeavesPriorSession(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: "tok", Role: "ADMIN", UserID: 1}, nil).Once()
	bad := model.Credentials{Email: "guest@example.com", Password: "wrong"}
	auth.On("Login", mock.Anything, bad).Return(model.LoginPayload{}, &api.StatusError{Status: 401, Message: "Invalid credentials"})

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	before, err := s.Login(context.Background(), guest)
	require.NoError(t, err)

	_, err = s.Login(context.Background(), bad)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, before, s.Session())
	assert.Equal(t, err, s.State().Err)
}

func TestLoginFallbackMessage(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{}, errors.New("dial tcp: connection refused"))

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	_, err := s.Login(context.Background(), guest)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, MsgLoginFailed, authErr.Message)
	assert.True(t, s.Session().IsAnonymous())
}

func TestLoginRejectsPartialPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload model.LoginPayload
	}{
		{"missing token", model.LoginPayload{Role: "ADMIN", UserID: 1}},
		{"missing role", model.LoginPayload{Token: "tok", UserID: 1}},
		{"missing user", model.LoginPayload{Token: "tok", Role: "ADMIN"}},
		{"unknown role", model.LoginPayload{Token: "tok", Role: "OWNER", UserID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuth{}
			auth.On("Login", mock.Anything, guest).Return(tt.payload, nil)
			storage := persist.NewMemory()
			s := newSessionStore(t, auth, storage, nil)

			_, err := s.Login(context.Background(), guest)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.True(t, s.Session().IsAnonymous())

			_, err = storage.Load(context.Background())
			assert.ErrorIs(t, err, persist.ErrNotFound)
		})
	}
}

func TestLoginReadsJWTExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: token, Role: "CUSTOMER", UserID: 3}, nil)

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	session, err := s.Login(context.Background(), guest)
	require.NoError(t, err)
	assert.True(t, exp.Equal(session.ExpiresAt))
}

func TestLogoutIsIdempotent(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: "tok", Role: "CUSTOMER", UserID: 42}, nil)
	storage := persist.NewMemory()
	bus := events.NewEventBus()
	published := 0
	bus.Subscribe(events.SessionChanged, func(events.Event) error {
		published++
		return nil
	})
	s := newSessionStore(t, auth, storage, bus)
	ctx := context.Background()

	_, err := s.Login(ctx, guest)
	require.NoError(t, err)

	s.Logout(ctx)
	first := s.State()
	s.Logout(ctx)

	assert.Equal(t, first, s.State())
	assert.True(t, s.Session().IsAnonymous())
	assert.Empty(t, s.Token())
	_, err = storage.Load(ctx)
	assert.ErrorIs(t, err, persist.ErrNotFound)
	assert.Equal(t, 2, published)
}

func TestRegisterDoesNotEstablishSession(t *testing.T) {
	profile := model.Profile{Name: "Guest", Email: "guest@example.com", Password: "pw", Role: model.RoleCustomer}
	auth := &mockAuth{}
	auth.On("Register", mock.Anything, profile).Return(nil)

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	require.NoError(t, s.Register(context.Background(), profile))
	assert.True(t, s.Session().IsAnonymous())
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestRegisterFailure(t *testing.T) {
	profile := model.Profile{Email: "taken@example.com", Password: "pw"}
	auth := &mockAuth{}
	auth.On("Register", mock.Anything, profile).Return(&api.StatusError{Status: 400, Message: ""})

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	_, err := s.RegisterAndLogin(context.Background(), profile)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, MsgRegisterFailed, authErr.Message)
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestRegisterThenLoginFailureStaysAnonymous(t *testing.T) {
	profile := model.Profile{Name: "Guest", Email: "guest@example.com", Password: "pw", Role: model.RoleCustomer}
	auth := &mockAuth{}
	auth.On("Register", mock.Anything, profile).Return(nil)
	auth.On("Login", mock.Anything, profile.Credentials()).Return(model.LoginPayload{}, &api.StatusError{Status: 500}).Once()

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	_, err := s.RegisterAndLogin(context.Background(), profile)

	var regErr *RegisteredNotAuthenticatedError
	require.ErrorAs(t, err, &regErr)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.True(t, s.Session().IsAnonymous())
	assert.Equal(t, err, s.State().Err)
	auth.AssertNumberOfCalls(t, "Login", 1)
}

func TestRegisterAndLoginSuccess(t *testing.T) {
	profile := model.Profile{Name: "Guest", Email: "guest@example.com", Password: "pw", Role: model.RoleCustomer}
	auth := &mockAuth{}
	auth.On("Register", mock.Anything, profile).Return(nil)
	auth.On("Login", mock.Anything, profile.Credentials()).Return(model.LoginPayload{Token: "tok", Role: "CUSTOMER", UserID: 7}, nil)

	s := newSessionStore(t, auth, persist.NewMemory(), nil)
	session, err := s.RegisterAndLogin(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, int64(7), session.UserID)
}

func TestRestore(t *testing.T) {
	valid := signedToken(t, time.Now().Add(time.Hour))
	expired := signedToken(t, time.Now().Add(-time.Hour))

	tests := []struct {
		name    string
		record  string
		wantTok string
	}{
		{"valid opaque", `{"v":1,"token":"tok","role":"ADMIN","userId":5}`, "tok"},
		{"valid jwt", `{"v":1,"token":"` + valid + `","role":"CUSTOMER","userId":5}`, valid},
		{"expired jwt", `{"v":1,"token":"` + expired + `","role":"CUSTOMER","userId":5,"expiresAt":"` +
			time.Now().Add(-time.Hour).UTC().Format(time.RFC3339) + `"}`, ""},
		{"garbage", `not json`, ""},
		{"partial", `{"v":1,"token":"tok","userId":5}`, ""},
		{"unknown role", `{"v":1,"token":"tok","role":"OWNER","userId":5}`, ""},
		{"unversioned", `{"token":"tok","role":"ADMIN","userId":5}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := persist.NewMemory()
			ctx := context.Background()
			require.NoError(t, storage.Save(ctx, []byte(tt.record)))

			s := newSessionStore(t, &mockAuth{}, storage, nil)
			session := s.Restore(ctx)
			assert.Equal(t, tt.wantTok, session.Token)
			assert.Equal(t, tt.wantTok, s.Token())

			_, err := storage.Load(ctx)
			if tt.wantTok == "" {
				assert.ErrorIs(t, err, persist.ErrNotFound)
				assert.True(t, s.Session().IsAnonymous())
			} else {
				assert.NoError(t, err)
				assert.True(t, s.Session().IsAuthenticated())
			}
		})
	}
}

func TestRestoreAfterLoginRoundTrip(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: "tok", Role: "ADMIN", UserID: 9}, nil)
	storage := persist.NewMemory()
	ctx := context.Background()

	_, err := newSessionStore(t, auth, storage, nil).Login(ctx, guest)
	require.NoError(t, err)

	restored := newSessionStore(t, auth, storage, nil).Restore(ctx)
	assert.True(t, restored.IsAdmin())
	assert.Equal(t, int64(9), restored.UserID)
}

type failingStorage struct {
	persist.Memory
}

func (f *failingStorage) Save(context.Context, []byte) error { return errors.New("disk full") }

type undeletableStorage struct {
	persist.Memory
}

func (u *undeletableStorage) Clear(context.Context) error { return errors.New("disk full") }

func TestLogoutSurvivesReloadWhenClearFails(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: "tok", Role: "CUSTOMER", UserID: 7}, nil)
	storage := &undeletableStorage{}
	ctx := context.Background()

	s := newSessionStore(t, auth, storage, nil)
	_, err := s.Login(ctx, guest)
	require.NoError(t, err)

	s.Logout(ctx)
	assert.True(t, s.Session().IsAnonymous())

	reloaded := newSessionStore(t, auth, storage, nil)
	assert.True(t, reloaded.Restore(ctx).IsAnonymous())
	assert.True(t, reloaded.Session().IsAnonymous())

	raw, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"tok"`)
}

func TestLoginPersistFailureKeepsMemoryUnchanged(t *testing.T) {
	auth := &mockAuth{}
	auth.On("Login", mock.Anything, guest).Return(model.LoginPayload{Token: "tok", Role: "ADMIN", UserID: 9}, nil)

	s := newSessionStore(t, auth, &failingStorage{}, nil)
	_, err := s.Login(context.Background(), guest)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, MsgSessionPersistFail, authErr.Message)
	assert.True(t, s.Session().IsAnonymous())
}
