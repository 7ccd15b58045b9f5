package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	goption "google.golang.org/api/option"

	"tally/internal/log"
)

// ManagerConfig configures the OAuth client and session lifetime.
type ManagerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint defaults to Google
	Endpoint oauth2.Endpoint
	// UserInfoEndpoint overrides the base URL of the Google OAuth2 API
	UserInfoEndpoint string
	SessionTTL       time.Duration
}

// Manager runs the OAuth sign-in flow, owns sessions and broadcasts auth changes
// to the providers it hands out.
type Manager struct {
	oauth            *oauth2.Config
	userInfoEndpoint string
	store            SessionStore
	ttl              time.Duration
	logger           *log.Logger
	now              func() time.Time

	mu     sync.Mutex
	subs   map[string]map[int]func(Event, *Session)
	nextID int
}

func NewManager(cfg ManagerConfig, store SessionStore, logger *log.Logger) *Manager {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoEndpoint: cfg.UserInfoEndpoint,
		store:            store,
		ttl:              ttl,
		logger:           logger.WithComponent(log.ComponentAuth),
		now:              time.Now,
		subs:             map[string]map[int]func(Event, *Session){},
	}
}

// NewOAuthState returns a random value for the OAuth state parameter.
func NewOAuthState() (string, error) {
	return randomToken(16)
}

// AuthCodeURL is the provider URL the browser is sent to for sign-in.
func (m *Manager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for the signed-in user's identity.
func (m *Manager) Exchange(ctx context.Context, code string) (User, error) {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return User{}, fmt.Errorf("exchange code: %w", err)
	}

	opts := []goption.ClientOption{goption.WithHTTPClient(m.oauth.Client(ctx, token))}
	if m.userInfoEndpoint != "" {
		opts = append(opts, goption.WithEndpoint(m.userInfoEndpoint))
	}
	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return User{}, fmt.Errorf("oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Id == "" {
		return User{}, errors.New("userinfo has no subject")
	}
	return User{
		ID:         info.Id,
		Email:      info.Email,
		Name:       info.Name,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		AvatarURL:  info.Picture,
	}, nil
}

// SignIn creates a session for user and notifies its subscribers.
func (m *Manager) SignIn(ctx context.Context, user User) (*Session, error) {
	id, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := m.now()
	sess := &Session{ID: id, User: user, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	m.logger.InfoContext(ctx, "User signed in",
		log.FieldUserID, user.ID,
		log.FieldOperation, log.OpSignIn)
	m.broadcast(id, EventSignedIn, sess)
	return sess, nil
}

// SignOut deletes the session and notifies its subscribers.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.InfoContext(ctx, "User signed out", log.FieldOperation, log.OpSignOut)
	m.broadcast(sessionID, EventSignedOut, nil)
	return nil
}

// Session looks up a live session.
func (m *Manager) Session(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(ctx, sessionID)
}

// ProviderFor returns the Provider view of one session.
func (m *Manager) ProviderFor(sessionID string) Provider {
	return &sessionProvider{m: m, sessionID: sessionID}
}

func (m *Manager) subscribe(sessionID string, fn func(Event, *Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = map[int]func(Event, *Session){}
	}
	m.subs[sessionID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[sessionID], id)
			if len(m.subs[sessionID]) == 0 {
				delete(m.subs, sessionID)
			}
		})
	}
}

func (m *Manager) broadcast(sessionID string, ev Event, sess *Session) {
	m.mu.Lock()
	fns := make([]func(Event, *Session), 0, len(m.subs[sessionID]))
	for _, fn := range m.subs[sessionID] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev, sess)
	}
}

// Subscribers returns how many listeners a session has.
func (m *Manager) Subscribers(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[sessionID])
}

type sessionProvider struct {
	m         *Manager
	sessionID string
}

func (p *sessionProvider) GetSession(ctx context.Context) (*Session, error) {
	sess, err := p.m.Session(ctx, p.sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return sess, err
}

func (p *sessionProvider) OnAuthStateChange(fn func(Event, *Session)) func() {
	return p.m.subscribe(p.sessionID, fn)
}
