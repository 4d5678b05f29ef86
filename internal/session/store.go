package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/steward/internal/shared"
	"github.com/odyssey-erp/steward/internal/users"
)

// DefaultLogoutDelay is the minimum time a logout takes.
const DefaultLogoutDelay = 300 * time.Millisecond

const loginUnavailableMessage = "sign-in is unavailable, try again later"

// Directory is the part of the user directory the session needs.
type Directory interface {
	LookupByUsername(ctx context.Context, username string) (*users.Identity, error)
	Update(ctx context.Context, id int64, fields users.Fields) (users.Identity, error)
}

// State is a read-only snapshot of the session for collaborators.
type State struct {
	Identity   *users.Identity `json:"identity"`
	Loading    bool            `json:"loading"`
	LoggingOut bool            `json:"logout_loading"`
	Error      string          `json:"error,omitempty"`
}

type persistedEntry struct {
	Identity *users.Identity `json:"identity"`
	Token    string          `json:"token"`
}

// Options tune a Store. Zero values select the defaults.
type Options struct {
	Verifier    CredentialVerifier
	Logger      *slog.Logger
	Audit       AuditSink
	Metrics     MetricsObserver
	LogoutDelay time.Duration
	Clock       func() time.Time
	NewToken    func() string
	Sleep       func(time.Duration)
}

// Store owns the single current session of the process.
//
// Login, Logout and Restore each raise their own in-progress flag; the store
// does not serialise them. Callers must not start a second operation while a
// flag is set. The mutex only protects field access.
type Store struct {
	directory Directory
	storage   Storage
	verifier  CredentialVerifier
	logger    *slog.Logger
	audit     AuditSink
	metrics   MetricsObserver
	delay     time.Duration
	now       func() time.Time
	newToken  func() string
	sleep     func(time.Duration)

	mu         sync.RWMutex
	identity   *users.Identity
	token      string
	loading    bool
	loggingOut bool
	lastErr    string
}

// NewStore constructs an empty Store. It reports Loading until Restore runs.
func NewStore(directory Directory, storage Storage, opts Options) *Store {
	s := &Store{
		directory: directory,
		storage:   storage,
		verifier:  opts.Verifier,
		logger:    opts.Logger,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		delay:     opts.LogoutDelay,
		now:       opts.Clock,
		newToken:  opts.NewToken,
		sleep:     opts.Sleep,
		loading:   true,
	}
	if s.verifier == nil {
		s.verifier = PlaceholderVerifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.delay < 0 {
		s.delay = 0
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newToken == nil {
		s.newToken = uuid.NewString
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	return s
}

// Restore loads the persisted session, trusting it without re-validation.
// A malformed entry is deleted; a missing one leaves the session empty.
func (s *Store) Restore(ctx context.Context) {
	defer s.setLoading(false)
	ctx = context.WithoutCancel(ctx)

	data, err := s.storage.Get(ctx, AuthKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("session restore read", slog.Any("error", err))
		}
		s.clear()
		return
	}
	entry, err := decodeEntry(data)
	if err != nil {
		s.logger.Warn("session restore discarded corrupt entry", slog.Any("error", err))
		if delErr := s.storage.Delete(ctx, AuthKey); delErr != nil {
			s.logger.Warn("session restore cleanup", slog.Any("error", delErr))
		}
		s.clear()
		return
	}

	s.mu.Lock()
	s.identity = entry.Identity
	s.token = entry.Token
	s.lastErr = ""
	s.mu.Unlock()

	s.record(ctx, Event{Kind: EventRestore, IdentityID: entry.Identity.ID, Username: entry.Identity.Username})
}

// Login authenticates username against the directory and the configured
// verifier. It returns shared.ErrInvalidCredentials for any unknown, inactive
// or wrong-password attempt, without saying which.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	defer s.setLoading(false)
	ctx = context.WithoutCancel(ctx)

	identity, err := s.authenticate(ctx, username, password)
	if err != nil {
		s.fail(ctx, username, err)
		return err
	}

	now := s.now().UTC()
	updated, err := s.directory.Update(ctx, identity.ID, users.Fields{LastLogin: &now})
	if err != nil {
		err = fmt.Errorf("session: stamp last login: %w", err)
		s.fail(ctx, username, err)
		return err
	}

	token := s.newToken()
	s.persist(ctx, persistedEntry{Identity: &updated, Token: token})

	s.mu.Lock()
	s.identity = &updated
	s.token = token
	s.mu.Unlock()

	s.record(ctx, Event{Kind: EventLogin, IdentityID: updated.ID, Username: updated.Username})
	return nil
}

// Logout waits the configured minimum delay, then forgets the persisted entry
// and the in-memory session. LoggingOut is set for the whole call.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.loggingOut = true
	previous := s.identity
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loggingOut = false
		s.mu.Unlock()
	}()
	ctx = context.WithoutCancel(ctx)

	if s.delay > 0 {
		s.sleep(s.delay)
	}
	if err := s.storage.Delete(ctx, AuthKey); err != nil {
		s.logger.Warn("session logout cleanup", slog.Any("error", err))
	}
	s.clear()

	event := Event{Kind: EventLogout}
	if previous != nil {
		event.IdentityID = previous.ID
		event.Username = previous.Username
	}
	s.record(ctx, event)
}

// Refresh replaces the signed-in identity with a newer copy from the
// directory and rewrites the persisted entry under the same token. It does
// nothing when identity is not the one signed in.
func (s *Store) Refresh(ctx context.Context, identity users.Identity) {
	s.mu.Lock()
	if s.identity == nil || s.identity.ID != identity.ID {
		s.mu.Unlock()
		return
	}
	clone := identity.Clone()
	s.identity = &clone
	token := s.token
	s.mu.Unlock()

	persisted := clone.Clone()
	s.persist(context.WithoutCancel(ctx), persistedEntry{Identity: &persisted, Token: token})
}

// CurrentIdentity returns a copy of the signed-in identity, or nil.
func (s *Store) CurrentIdentity() *users.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	clone := s.identity.Clone()
	return &clone
}

// Token returns the opaque login token, empty when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Loading reports whether a login or the startup restore is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LoggingOut reports whether a logout is in flight.
func (s *Store) LoggingOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggingOut
}

// State returns a snapshot of the session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := State{Loading: s.loading, LoggingOut: s.loggingOut, Error: s.lastErr}
	if s.identity != nil {
		clone := s.identity.Clone()
		state.Identity = &clone
	}
	return state
}

func (s *Store) authenticate(ctx context.Context, username, password string) (*users.Identity, error) {
	identity, err := s.directory.LookupByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("session: lookup: %w", err)
	}
	if identity == nil || !identity.IsActive() {
		return nil, shared.ErrInvalidCredentials
	}
	if !s.verifier.Verify(ctx, *identity, password) {
		return nil, shared.ErrInvalidCredentials
	}
	return identity, nil
}

func (s *Store) fail(ctx context.Context, username string, err error) {
	message := shared.ErrInvalidCredentials.Error()
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		s.logger.Error("session login", slog.Any("error", err))
		message = loginUnavailableMessage
	}
	s.mu.Lock()
	s.lastErr = message
	s.mu.Unlock()
	s.record(ctx, Event{Kind: EventLoginFailed, Username: username})
}

func (s *Store) persist(ctx context.Context, entry persistedEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("session persist encode", slog.Any("error", err))
		return
	}
	if err := s.storage.Set(ctx, AuthKey, data); err != nil {
		s.logger.Warn("session persist write", slog.Any("error", err))
	}
}

func (s *Store) record(ctx context.Context, event Event) {
	event.At = s.now().UTC()
	if s.metrics != nil {
		s.metrics.ObserveAuthEvent(string(event.Kind))
	}
	if s.audit != nil {
		s.audit.Record(ctx, event)
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) clear() {
	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.lastErr = ""
	s.mu.Unlock()
}

func decodeEntry(data []byte) (persistedEntry, error) {
	var entry persistedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return persistedEntry{}, fmt.Errorf("decode: %w", err)
	}
	if entry.Identity == nil || entry.Identity.ID <= 0 || strings.TrimSpace(entry.Identity.Username) == "" {
		return persistedEntry{}, errors.New("entry has no identity")
	}
	if strings.TrimSpace(entry.Token) == "" {
		return persistedEntry{}, errors.New("entry has no token")
	}
	return entry, nil
}

var _ users.SessionBinding = (*Store)(nil)
