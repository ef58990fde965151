package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-warehouse-orders/internal/orders"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresAt    = "expires_at"
	KeyUser         = "user"
	KeyTheme        = "theme"
	KeyLanguage     = "language"
)

const (
	refreshLead     = 5 * time.Minute
	minRefreshDelay = 30 * time.Second
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrSessionEnded = errors.New("session ended during refresh")
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

type Language string

const (
	LanguageID Language = "id"
	LanguageEN Language = "en"
)

func (l Language) Valid() bool { return l == LanguageID || l == LanguageEN }

// Tokens mirrors the token object returned by /auth/login and /auth/refresh_token.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Refresher trades a refresh token for a new pair.
type Refresher func(ctx context.Context, refreshToken string) (Tokens, error)

type Timer interface{ Stop() bool }

// RefreshDelay is how long to wait before refreshing a token that expires in ttl.
func RefreshDelay(ttl time.Duration) time.Duration {
	d := ttl - refreshLead
	if d < minRefreshDelay {
		return minRefreshDelay
	}
	return d
}

// Session is the client's application state: tokens, the signed-in user and
// UI preferences, persisted through Storage. While logged in and a Refresher
// is set, a timer refreshes the access token before it expires.
//
// Every login, refresh and logout bumps a generation counter. Timers and
// in-flight refreshes remember the generation they started under and drop
// their result when it no longer matches.
type Session struct {
	Store     Storage
	Log       *zap.Logger
	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) Timer
	OnLogout  func() // forced logout only

	mu        sync.Mutex
	access    string
	refresh   string
	expiresAt time.Time
	user      *orders.User
	theme     Theme
	language  Language
	refresher Refresher
	gen       uint64
	timer     Timer
	cancel    context.CancelFunc
	inflight  chan struct{}
	discarded []string // refresh tokens issued to refreshes that finished after logout
	flight    singleflight.Group
}

func New(store Storage, log *zap.Logger) *Session {
	return &Session{Store: store, Log: log, theme: ThemeSystem, language: LanguageID}
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Session) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Session) afterFunc(d time.Duration, f func()) Timer {
	if s.AfterFunc != nil {
		return s.AfterFunc(d, f)
	}
	return time.AfterFunc(d, f)
}

// Load reads persisted state. Missing keys leave defaults in place; a
// corrupt user record is dropped instead of failing startup.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	get := func(k string) (string, error) {
		v, _, err := s.Store.Get(k)
		return v, err
	}
	var err error
	if s.access, err = get(KeyAccessToken); err != nil {
		return err
	}
	if s.refresh, err = get(KeyRefreshToken); err != nil {
		return err
	}
	if v, err := get(KeyExpiresAt); err != nil {
		return err
	} else if t, perr := time.Parse(time.RFC3339, v); perr == nil {
		s.expiresAt = t
	}
	if v, err := get(KeyUser); err != nil {
		return err
	} else if v != "" {
		var u orders.User
		if jerr := json.Unmarshal([]byte(v), &u); jerr != nil {
			s.log().Warn("dropping unreadable user record", zap.Error(jerr))
		} else {
			s.user = &u
		}
	}
	if v, err := get(KeyTheme); err != nil {
		return err
	} else if Theme(v).Valid() {
		s.theme = Theme(v)
	}
	if v, err := get(KeyLanguage); err != nil {
		return err
	} else if Language(v).Valid() {
		s.language = Language(v)
	}
	s.armLocked()
	return nil
}

// SetRefresher enables auto refresh.
func (s *Session) SetRefresher(r Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresher = r
	s.armLocked()
}

// Begin stores a fresh login.
func (s *Session) Begin(tok Tokens, u orders.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.Store.Set(KeyUser, string(b)); err != nil {
		return err
	}
	return s.applyLocked(tok)
}

// Update stores a refreshed token pair.
func (s *Session) Update(tok Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(tok)
}

func (s *Session) applyLocked(tok Tokens) error {
	s.gen++
	s.access, s.refresh = tok.AccessToken, tok.RefreshToken
	s.expiresAt = s.now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
	s.armLocked()

	for k, v := range map[string]string{
		KeyAccessToken:  s.access,
		KeyRefreshToken: s.refresh,
		KeyExpiresAt:    s.expiresAt.Format(time.RFC3339),
	} {
		if err := s.Store.Set(k, v); err != nil {
			return fmt.Errorf("persisting %s: %w", k, err)
		}
	}
	return nil
}

// Clear logs out locally: the timer and any in-flight refresh are cancelled
// and the tokens and user are removed. Preferences are kept.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(true)
}

// End clears the session ahead of a server-side logout and returns every
// refresh token that may still be live on the server: the current one and
// those issued to a refresh that was in flight when End was called. An
// in-flight refresh is waited for, not cancelled, so the pair the server
// rotated to is known; its result is never applied.
func (s *Session) End(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	rt, wait := s.refresh, s.inflight
	err := s.clearLocked(false)
	s.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var tokens []string
	if rt != "" {
		tokens = append(tokens, rt)
	}
	tokens = append(tokens, s.discarded...)
	s.discarded = nil
	return tokens, err
}

func (s *Session) clearLocked(cancelRefresh bool) error {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if cancelRefresh && s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.access, s.refresh, s.expiresAt, s.user = "", "", time.Time{}, nil
	return s.Store.Delete(KeyAccessToken, KeyRefreshToken, KeyExpiresAt, KeyUser)
}

func (s *Session) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.refresher == nil || s.refresh == "" {
		return
	}
	gen := s.gen
	d := RefreshDelay(s.expiresAt.Sub(s.now()))
	s.timer = s.afterFunc(d, func() {
		if err := s.refreshGen(gen); err != nil && !errors.Is(err, ErrSessionEnded) {
			s.log().Warn("auto refresh failed", zap.Error(err))
		}
	})
}

// Refresh exchanges the refresh token now. Concurrent callers share one
// request. When the exchange fails the session is cleared.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.refreshGen(gen) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) refreshGen(gen uint64) error {
	_, err, _ := s.flight.Do("refresh", func() (any, error) {
		return nil, s.doRefresh(gen)
	})
	return err
}

func (s *Session) doRefresh(gen uint64) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	if s.refresher == nil || s.refresh == "" {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s.cancel = cancel
	done := make(chan struct{})
	s.inflight = done
	rt, fn := s.refresh, s.refresher
	s.mu.Unlock()
	defer cancel()

	tok, err := fn(ctx, rt)

	s.mu.Lock()
	s.inflight = nil
	close(done)
	if gen != s.gen {
		// logout selama refresh berjalan: hasilnya dibuang
		if err == nil && tok.RefreshToken != "" {
			s.discarded = append(s.discarded, tok.RefreshToken)
		}
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.cancel = nil
	if err != nil {
		if cerr := s.clearLocked(true); cerr != nil {
			s.log().Warn("clearing session", zap.Error(cerr))
		}
		onLogout := s.OnLogout
		s.mu.Unlock()
		s.log().Info("refresh rejected, session cleared", zap.Error(err))
		if onLogout != nil {
			onLogout()
		}
		return fmt.Errorf("refreshing session: %w", err)
	}
	err = s.applyLocked(tok)
	s.mu.Unlock()
	return err
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access != ""
}

func (s *Session) User() (orders.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return orders.User{}, false
	}
	return *s.user, true
}

func (s *Session) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Session) SetTheme(t Theme) error {
	if !t.Valid() {
		return orders.Invalid("theme", "must be light, dark or system")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
	return s.Store.Set(KeyTheme, string(t))
}

func (s *Session) Language() Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) SetLanguage(l Language) error {
	if !l.Valid() {
		return orders.Invalid("language", "must be id or en")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = l
	return s.Store.Set(KeyLanguage, string(l))
}
