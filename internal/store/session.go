package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"stayease/internal/events"
	"stayease/internal/metrics"
	"stayease/internal/model"
	"stayease/internal/persist"
)

// AuthClient is the auth collaborator.
type AuthClient interface {
	Login(ctx context.Context, creds model.Credentials) (model.LoginPayload, error)
	Register(ctx context.Context, profile model.Profile) error
}

// SessionState is a snapshot for display.
type SessionState struct {
	Session model.Session
	Loading bool
	Err     error
}

// SessionStore holds the current identity in memory and in durable storage.
// It is Anonymous or Authenticated(role); partial sessions are never stored.
type SessionStore struct {
	client  AuthClient
	storage persist.SessionStorage
	bus     events.Publisher
	logger  zerolog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	session model.Session
	pending int
	err     error
}

func NewSessionStore(client AuthClient, storage persist.SessionStorage, opts Options) *SessionStore {
	return &SessionStore{
		client:  client,
		storage: storage,
		bus:     opts.Bus,
		logger:  opts.logger("session"),
		now:     time.Now,
	}
}

// sessionRecord is the single durable record. Version guards future shape changes.
type sessionRecord struct {
	Version int `json:"v"`
	model.Session
}

const recordVersion = 1

// Login authenticates and replaces the session. On any failure the prior
// session is left untouched.
func (s *SessionStore) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	s.start()
	payload, err := s.client.Login(ctx, creds)
	if err != nil {
		authErr := &AuthError{Op: "login", Message: message(err, MsgLoginFailed), Err: err}
		s.fail(authErr)
		return model.Session{}, authErr
	}

	session, err := s.normalize(payload)
	if err != nil {
		authErr := &AuthError{Op: "login", Message: MsgSessionIncomplete, Err: err}
		s.fail(authErr)
		return model.Session{}, authErr
	}

	if err := s.save(ctx, session); err != nil {
		s.fail(err)
		return model.Session{}, err
	}

	s.mu.Lock()
	s.session = session
	s.pending--
	s.err = nil
	s.mu.Unlock()

	metrics.IncSession("login")
	s.logger.Info().Int64("user_id", session.UserID).Str("role", string(session.Role)).Msg("session established")
	s.publish(session)
	return session, nil
}

// Register creates the account without establishing a session.
func (s *SessionStore) Register(ctx context.Context, profile model.Profile) error {
	s.start()
	if err := s.client.Register(ctx, profile); err != nil {
		authErr := &AuthError{Op: "register", Message: message(err, MsgRegisterFailed), Err: err}
		s.fail(authErr)
		return authErr
	}
	s.mu.Lock()
	s.pending--
	s.err = nil
	s.mu.Unlock()

	metrics.IncSession("register")
	return nil
}

// RegisterAndLogin registers and then logs in with the same credentials.
// A login failure after a successful registration is returned as
// *RegisteredNotAuthenticatedError and is not retried.
func (s *SessionStore) RegisterAndLogin(ctx context.Context, profile model.Profile) (model.Session, error) {
	if err := s.Register(ctx, profile); err != nil {
		return model.Session{}, err
	}
	session, err := s.Login(ctx, profile.Credentials())
	if err != nil {
		wrapped := &RegisteredNotAuthenticatedError{Email: profile.Email, Err: err}
		s.mu.Lock()
		s.err = wrapped
		s.mu.Unlock()
		return model.Session{}, wrapped
	}
	return session, nil
}

// Logout clears memory and durable state. It is idempotent.
func (s *SessionStore) Logout(ctx context.Context) {
	s.clearDurable(ctx)

	s.mu.Lock()
	was := s.session
	s.session = model.Session{}
	s.err = nil
	s.mu.Unlock()

	if was.IsAuthenticated() {
		metrics.IncSession("logout")
		s.publish(model.Session{})
	}
}

// Restore loads the durable record at startup. Anything unreadable, partial
// or expired is discarded and the store stays anonymous.
func (s *SessionStore) Restore(ctx context.Context) model.Session {
	raw, err := s.storage.Load(ctx)
	if errors.Is(err, persist.ErrNotFound) {
		return model.Session{}
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("read durable session failed")
		return model.Session{}
	}

	session, reason := s.decode(raw)
	if reason != "" {
		s.logger.Info().Str("reason", reason).Msg("discarding durable session")
		s.clearDurable(ctx)
		metrics.IncSession("restore_discarded")
		return model.Session{}
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	metrics.IncSession("restored")
	s.publish(session)
	return session
}

func (s *SessionStore) decode(raw []byte) (model.Session, string) {
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.Session{}, "unparseable"
	}
	if rec.Version != recordVersion {
		return model.Session{}, "unknown version"
	}
	if !rec.IsAuthenticated() {
		return model.Session{}, "partial"
	}
	role, err := model.ParseRole(string(rec.Role))
	if err != nil {
		return model.Session{}, "unknown role"
	}
	rec.Role = role
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = tokenExpiry(rec.Token)
	}
	if rec.Expired(s.now()) {
		return model.Session{}, "expired"
	}
	return rec.Session, ""
}

// Session returns the current identity.
func (s *SessionStore) Session() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Token implements api.TokenSource.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{Session: s.session, Loading: s.pending > 0, Err: s.err}
}

func (s *SessionStore) normalize(p model.LoginPayload) (model.Session, error) {
	session := model.Session{Token: p.Token, UserID: int64(p.UserID)}
	if p.Role != "" {
		role, err := model.ParseRole(p.Role)
		if err != nil {
			return model.Session{}, err
		}
		session.Role = role
	}
	if !session.IsAuthenticated() {
		return model.Session{}, model.ErrPartialSession
	}
	session.ExpiresAt = tokenExpiry(session.Token)
	return session, nil
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// tokens have no client-side expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// clearDurable removes the record. When the delete fails the record is
// overwritten with an anonymous one, which Restore discards.
func (s *SessionStore) clearDurable(ctx context.Context) {
	err := s.storage.Clear(ctx)
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Msg("clear durable session failed, writing anonymous record")
	data, _ := json.Marshal(sessionRecord{Version: recordVersion})
	if err := s.storage.Save(ctx, data); err != nil {
		s.logger.Error().Err(err).Msg("durable session could not be cleared")
	}
}

func (s *SessionStore) save(ctx context.Context, session model.Session) error {
	data, err := json.Marshal(sessionRecord{Version: recordVersion, Session: session})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.Save(ctx, data); err != nil {
		return &AuthError{Op: "login", Message: MsgSessionPersistFail, Err: err}
	}
	return nil
}

func (s *SessionStore) start() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *SessionStore) fail(err error) {
	s.mu.Lock()
	s.pending--
	s.err = err
	s.mu.Unlock()
	s.logger.Debug().Err(err).Msg("session operation failed")
}

func (s *SessionStore) publish(session model.Session) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: events.SessionChanged, Payload: events.SessionPayload{
		Authenticated: session.IsAuthenticated(),
		Role:          session.Role,
		UserID:        session.UserID,
	}})
}
