package auth

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/soaringjerry/Assay/internal/services"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

type User struct {
	ID        string
	Username  string
	PassHash  []byte
	Roles     []string
	CreatedAt time.Time
}

type Claims struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the signed-in user of this console process.
type Session struct {
	UserID    string
	Username  string
	Role      string
	Token     string
	ExpiresAt time.Time
}

// Manager keeps an in-memory user registry and the active session. It
// implements services.AuthManager.
type Manager struct {
	mu       sync.RWMutex
	users    map[string]*User
	roles    []string
	session  *Session
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
	idGen    func() string
	limiters map[string]*rate.Limiter
	every    time.Duration
	burst    int
}

var _ services.AuthManager = (*Manager)(nil)

const (
	DefaultAdmin    = "admin"
	defaultPassword = "admin"
)

// NewManager builds a registry for the given roles and seeds the default
// admin account holding every role.
func NewManager(secret string, ttl time.Duration, roles []string) (*Manager, error) {
	if secret == "" {
		return nil, services.NewInvalidError("jwt secret required")
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	m := &Manager{
		users:    map[string]*User{},
		roles:    append([]string(nil), roles...),
		secret:   []byte(secret),
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func() string { return "u" + strings.ReplaceAll(uuid.NewString(), "-", "")[:7] },
		limiters: map[string]*rate.Limiter{},
		every:    30 * time.Second,
		burst:    5,
	}
	admin := []string{}
	if slices.Contains(m.roles, "admin") {
		admin = append(admin, "admin")
	}
	for _, r := range m.roles {
		if r != "admin" {
			admin = append(admin, r)
		}
	}
	if err := m.AddUser(DefaultAdmin, defaultPassword, admin...); err != nil {
		return nil, err
	}
	return m, nil
}

// AddUser registers username with a bcrypt hash of password. The first role is
// the one a fresh login starts in.
func (m *Manager) AddUser(username, password string, roles ...string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return services.NewInvalidError("username/password required")
	}
	if len(roles) == 0 {
		return services.NewInvalidError("at least one role required")
	}
	for _, r := range roles {
		if !slices.Contains(m.roles, r) {
			return services.NewInvalidError("unknown role: " + r)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(username)
	if _, ok := m.users[key]; ok {
		return services.NewInvalidError("username exists")
	}
	m.users[key] = &User{
		ID:        m.idGen(),
		Username:  username,
		PassHash:  hash,
		Roles:     append([]string(nil), roles...),
		CreatedAt: m.now(),
	}
	return nil
}

func (m *Manager) limiter(key string) *rate.Limiter {
	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(m.every), m.burst)
		m.limiters[key] = l
	}
	return l
}

// Login verifies credentials and starts a session. Each failed attempt spends
// one token of the per-username limiter; with none left, Login refuses before
// checking the password.
func (m *Manager) Login(username, password string) (*Session, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" || password == "" {
		return nil, services.NewInvalidError("username/password required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	lim := m.limiter(key)
	if lim.TokensAt(now) < 1 {
		return nil, services.NewStateError("too many attempts")
	}
	u, ok := m.users[key]
	if !ok || bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)) != nil {
		lim.AllowN(now, 1)
		return nil, services.NewUnauthorizedError("invalid credentials")
	}
	sess, err := m.sign(u, u.Roles[0], now)
	if err != nil {
		return nil, err
	}
	m.session = sess
	cp := *sess
	return &cp, nil
}

func (m *Manager) sign(u *User, role string, now time.Time) (*Session, error) {
	exp := now.Add(m.ttl)
	claims := Claims{UID: u.ID, Role: role, RegisteredClaims: jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   u.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: u.ID, Username: u.Username, Role: role, Token: token, ExpiresAt: exp}, nil
}

// Verify parses a token issued by this manager.
func (m *Manager) Verify(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// Resume restores a session from a previously issued token.
func (m *Manager) Resume(tok string) error {
	c, err := m.Verify(tok)
	if err != nil {
		return services.NewUnauthorizedError("invalid token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(c.Subject)]
	if !ok || u.ID != c.UID || !slices.Contains(u.Roles, c.Role) {
		return services.NewUnauthorizedError("invalid token")
	}
	m.session = &Session{UserID: u.ID, Username: u.Username, Role: c.Role, Token: tok, ExpiresAt: c.ExpiresAt.Time}
	return nil
}

// SwitchRole re-issues the session token for another role the user holds.
func (m *Manager) SwitchRole(role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.activeLocked() {
		return services.NewStateError("not signed in")
	}
	u := m.users[strings.ToLower(m.session.Username)]
	if u == nil || !slices.Contains(u.Roles, role) {
		return services.NewInvalidError("role not held: " + role)
	}
	sess, err := m.sign(u, role, m.now())
	if err != nil {
		return err
	}
	m.session = sess
	return nil
}

func (m *Manager) Logout() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}

func (m *Manager) activeLocked() bool {
	return m.session != nil && m.now().Before(m.session.ExpiresAt)
}

func (m *Manager) CurrentUser() (string, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.activeLocked() {
		return "", "", false
	}
	return m.session.Username, m.session.Role, true
}

// HasRole reports whether the signed-in user holds role, active or not.
func (m *Manager) HasRole(role string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.activeLocked() {
		return false
	}
	u := m.users[strings.ToLower(m.session.Username)]
	return u != nil && slices.Contains(u.Roles, role)
}

// RolesOf lists the roles held by username.
func (m *Manager) RolesOf(username string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[strings.ToLower(username)]; ok {
		return append([]string(nil), u.Roles...)
	}
	return nil
}
