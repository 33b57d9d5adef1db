// Package session holds the per-operator context: credentials recovered from
// the URL or the durable store, and the user profile fetched once at login.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/tripdesk/internal/common/kvstore"
	"github.com/tripdesk/internal/common/logger"
	"github.com/tripdesk/pkg/planning/models"
)

const (
	KeyToken = "token"
	KeyZone  = "zone"

	DefaultLanguage            = "pt-BR"
	DefaultTimeZone            = "America/Fortaleza"
	DefaultOperationalDayStart = "00:00:00"
)

var (
	ErrNoToken          = errors.New("no token available")
	ErrAlreadyPopulated = errors.New("session profile already populated")
	ErrNotPopulated     = errors.New("session profile not populated")
)

// Profile is the read-only user context established at login
type Profile struct {
	ClientID            int64
	TimeZone            string
	UserName            string
	UserID              string
	Companies           []int64
	Access              []interface{}
	OperationalDayStart string
	Language            string

	location *time.Location
}

// Location resolves TimeZone, falling back to UTC when it is unknown
func (p Profile) Location() *time.Location {
	if p.location != nil {
		return p.location
	}
	if loc, err := time.LoadLocation(p.TimeZone); err == nil && p.TimeZone != "" {
		return loc
	}
	return time.UTC
}

// ProfileFromUserData applies the bootstrap defaults to a /user/data response
func ProfileFromUserData(data models.UserData) Profile {
	p := Profile{
		Language:            DefaultLanguage,
		TimeZone:            DefaultTimeZone,
		OperationalDayStart: DefaultOperationalDayStart,
	}

	if data.Conf != nil && data.Conf.Lang != "" {
		p.Language = data.Conf.Lang
	}
	if data.Cli != nil {
		p.ClientID = data.Cli.ID
		if data.Cli.TZ != "" {
			p.TimeZone = data.Cli.TZ
		}
	}
	if data.User != nil {
		p.Access = data.User.Acss
		p.Companies = data.User.Emp
		p.UserName = data.User.Nm
		p.UserID = data.User.ID
	}
	if v := data.ConfValue(models.KeyOperationalDayStart); v != "" {
		p.OperationalDayStart = v
	}

	if loc, err := time.LoadLocation(p.TimeZone); err == nil {
		p.location = loc
	}

	return p
}

// UserDataFetcher is implemented by the planning API client
type UserDataFetcher interface {
	UserData(ctx context.Context) (models.UserData, error)
}

type Manager struct {
	store       kvstore.Store
	logger      logger.Logger
	defaultZone string

	mu      sync.RWMutex
	token   string
	zone    string
	profile *Profile
}

func NewManager(store kvstore.Store, defaultZone string, log logger.Logger) *Manager {
	if defaultZone == "" {
		defaultZone = "4"
	}
	return &Manager{
		store:       store,
		logger:      log,
		defaultZone: defaultZone,
	}
}

// Init establishes credentials. A token from the URL wins and is stored;
// otherwise the stored token is used. The zone follows the same rule.
func (m *Manager) Init(ctx context.Context, urlToken, urlZone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if urlToken != "" {
		m.token = urlToken
		if err := m.store.Set(ctx, KeyToken, urlToken); err != nil {
			m.logger.Warn("Failed to persist token", "error", err)
		}
	} else {
		stored, found, err := m.store.Get(ctx, KeyToken)
		if err != nil {
			m.logger.Warn("Failed to read stored token", "error", err)
		}
		if found {
			m.token = stored
		}
	}

	if urlZone != "" {
		m.zone = urlZone
		if err := m.store.Set(ctx, KeyZone, urlZone); err != nil {
			m.logger.Warn("Failed to persist zone", "error", err)
		}
	} else if stored, found, err := m.store.Get(ctx, KeyZone); err == nil && found {
		m.zone = stored
	}

	if m.token == "" {
		return ErrNoToken
	}
	return nil
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) Zone() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.zone == "" {
		return m.defaultZone
	}
	return m.zone
}

func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// ClearToken drops the token from memory and the durable store. Called on 401.
func (m *Manager) ClearToken(ctx context.Context) {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()

	if err := m.store.Delete(ctx, KeyToken); err != nil {
		m.logger.Warn("Failed to delete stored token", "error", err)
	}
	m.logger.Info("Session token cleared")
}

// Populate sets the profile once; later calls fail with ErrAlreadyPopulated
func (m *Manager) Populate(p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile != nil {
		return ErrAlreadyPopulated
	}
	m.profile = &p
	return nil
}

func (m *Manager) Profile() (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return Profile{}, ErrNotPopulated
	}
	return *m.profile, nil
}

// Bootstrap fetches the user data and populates the profile. A second call
// returns the existing profile without another fetch.
func (m *Manager) Bootstrap(ctx context.Context, fetcher UserDataFetcher) (Profile, error) {
	if p, err := m.Profile(); err == nil {
		return p, nil
	}
	if !m.Authenticated() {
		return Profile{}, ErrNoToken
	}

	data, err := fetcher.UserData(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("fetching user data: %w", err)
	}

	p := ProfileFromUserData(data)
	if err := m.Populate(p); err != nil && !errors.Is(err, ErrAlreadyPopulated) {
		return Profile{}, err
	}

	m.logger.Info("Session initialized",
		"client_id", p.ClientID,
		"timezone", p.TimeZone,
		"user", p.UserName,
		"companies", len(p.Companies))

	return m.Profile()
}

// PreferenceScope is the key prefix for view preferences of this user
func (p Profile) PreferenceScope() string {
	if p.UserID == "" {
		return "prefs"
	}
	return "prefs:" + p.UserID
}
