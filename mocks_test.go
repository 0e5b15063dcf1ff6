package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/repository"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

// MockConfig implements auth.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string             { return m.Called().String(0) }
func (m *MockConfig) GetTokenExpiration() time.Duration { return m.Called().Get(0).(time.Duration) }
func (m *MockConfig) GetIssuer() string                 { return m.Called().String(0) }
func (m *MockConfig) GetAudience() []string             { return m.Called().Get(0).([]string) }
func (m *MockConfig) GetContextKey() string             { return m.Called().String(0) }
func (m *MockConfig) GetTokenLookup() string            { return m.Called().String(0) }
func (m *MockConfig) GetAuthScheme() string             { return m.Called().String(0) }
func (m *MockConfig) GetBaseURL() string                { return m.Called().String(0) }
func (m *MockConfig) GetConfirmationTokenTTL() time.Duration {
	return m.Called().Get(0).(time.Duration)
}
func (m *MockConfig) GetPasswordResetTokenTTL() time.Duration {
	return m.Called().Get(0).(time.Duration)
}
func (m *MockConfig) GetRequireConfirmedEmail() bool { return m.Called().Bool(0) }
func (m *MockConfig) GetUseHashid() bool             { return m.Called().Bool(0) }

type configOverrides struct {
	requireConfirmed bool
	useHashid        bool
}

func newMockConfig(o configOverrides) *MockConfig {
	m := new(MockConfig)
	m.On("GetSigningKey").Return(testSigningKey).Maybe()
	m.On("GetTokenExpiration").Return(time.Hour).Maybe()
	m.On("GetIssuer").Return("test-issuer").Maybe()
	m.On("GetAudience").Return([]string{"test:audience"}).Maybe()
	m.On("GetContextKey").Return("").Maybe()
	m.On("GetTokenLookup").Return("header:Authorization").Maybe()
	m.On("GetAuthScheme").Return("Bearer").Maybe()
	m.On("GetBaseURL").Return("https://blog.test").Maybe()
	m.On("GetConfirmationTokenTTL").Return(24 * time.Hour).Maybe()
	m.On("GetPasswordResetTokenTTL").Return(time.Hour).Maybe()
	m.On("GetRequireConfirmedEmail").Return(o.requireConfirmed).Maybe()
	m.On("GetUseHashid").Return(o.useHashid).Maybe()
	return m
}

// sentEmail is one link handed to the capture dispatcher
type sentEmail struct {
	Kind  string
	Email string
	Link  string
}

// captureDispatcher records links and can be told to fail
type captureDispatcher struct {
	mu   sync.Mutex
	sent []sentEmail
	fail error
}

func (d *captureDispatcher) SendConfirmationLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.record("confirm", email, link)
}

func (d *captureDispatcher) SendPasswordResetLink(ctx context.Context, user *auth.User, email, link string) error {
	return d.record("reset", email, link)
}

func (d *captureDispatcher) record(kind, email, link string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.sent = append(d.sent, sentEmail{Kind: kind, Email: email, Link: link})
	return nil
}

func (d *captureDispatcher) last(t *testing.T, kind string) sentEmail {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.sent) - 1; i >= 0; i-- {
		if d.sent[i].Kind == kind {
			return d.sent[i]
		}
	}
	t.Fatalf("no %s email sent", kind)
	return sentEmail{}
}

func (d *captureDispatcher) count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// recordingSink keeps activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// warnLogger keeps the messages logged at warn level
type warnLogger struct {
	nopLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *warnLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// fastHasher keeps tests quick; production uses the default parameters
func fastHasher() *auth.MultiHasher {
	return auth.NewMultiHasher(&auth.Argon2idHasher{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}, auth.NewBcryptHasher(bcrypt.MinCost))
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := repository.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.CreateSchema(context.Background(), db))
	return repository.NewStore(db)
}

type testEnv struct {
	store    *repository.Store
	service  *auth.Service
	mailer   *captureDispatcher
	activity *recordingSink
	config   *MockConfig
}

func newTestEnv(t *testing.T, o configOverrides) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newTestStore(t),
		mailer:   &captureDispatcher{},
		activity: &recordingSink{},
		config:   newMockConfig(o),
	}
	service, err := auth.NewService(auth.ServiceOptions{
		Store:    env.store,
		Config:   env.config,
		Mailer:   env.mailer,
		Logger:   nopLogger{},
		Activity: env.activity,
		Hasher:   fastHasher(),
	})
	require.NoError(t, err)
	env.service = service
	return env
}

// registerConfirmed registers a user, confirms the email and grants roles
func (env *testEnv) registerConfirmed(t *testing.T, email, name, password string, roles ...auth.Role) *auth.User {
	t.Helper()
	ctx := context.Background()

	_, err := env.service.Register(ctx, email, name, password)
	require.NoError(t, err)

	link := env.mailer.last(t, "confirm")
	require.NoError(t, env.service.ConfirmEmail(ctx, email, tokenFromLink(t, link.Link)))

	user, err := env.service.UserManager().FindByEmail(ctx, email)
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, env.service.UserManager().AddRole(ctx, user, r))
	}
	return user
}
