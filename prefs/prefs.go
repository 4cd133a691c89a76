package prefs

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"contact-gateway/cache"
	"contact-gateway/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidTheme  = errors.New("theme must be one of: light, dark, system")
	ErrInvalidLocale = errors.New("locale must be a language tag like en or en-US")

	localeRegex = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)
)

var validThemes = map[string]bool{
	"light":  true,
	"dark":   true,
	"system": true,
}

// Preferences are the per-client display settings. They survive across
// sessions, keyed by the client identifier.
type Preferences struct {
	Theme  string `json:"theme"`
	Locale string `json:"locale"`
}

// Store persists preferences in Redis with a read-through in-process cache.
// A client that has never saved anything gets the configured defaults.
type Store struct {
	rdb      *redis.Client
	cache    *cache.Cache
	defaults Preferences
}

func NewStore(rdb *redis.Client, c *cache.Cache, cfg config.PreferencesConfig) *Store {
	return &Store{
		rdb:   rdb,
		cache: c,
		defaults: Preferences{
			Theme:  cfg.DefaultTheme,
			Locale: cfg.DefaultLocale,
		},
	}
}

func themeKey(clientID string) string  { return fmt.Sprintf("prefs:%s:theme", clientID) }
func localeKey(clientID string) string { return fmt.Sprintf("prefs:%s:locale", clientID) }
func cacheKey(clientID string) string  { return "prefs:" + clientID }

// Get returns the client's saved preferences, falling back to the defaults
// for anything never saved.
func (s *Store) Get(ctx context.Context, clientID string) (Preferences, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey(clientID)); found {
			if p, ok := cached.(Preferences); ok {
				return p, nil
			}
		}
	}

	values, err := s.rdb.MGet(ctx, themeKey(clientID), localeKey(clientID)).Result()
	if err != nil {
		return s.defaults, fmt.Errorf("failed to load preferences: %w", err)
	}

	p := s.defaults
	if theme, ok := values[0].(string); ok && validThemes[theme] {
		p.Theme = theme
	}
	if locale, ok := values[1].(string); ok && localeRegex.MatchString(locale) {
		p.Locale = locale
	}

	if s.cache != nil {
		s.cache.Set(cacheKey(clientID), p, 1)
	}
	return p, nil
}

// Set validates and persists both fields, then refreshes the cache.
func (s *Store) Set(ctx context.Context, clientID string, p Preferences) error {
	if !validThemes[p.Theme] {
		return ErrInvalidTheme
	}
	if !localeRegex.MatchString(p.Locale) {
		return ErrInvalidLocale
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, themeKey(clientID), p.Theme, 0)
	pipe.Set(ctx, localeKey(clientID), p.Locale, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(cacheKey(clientID), p, 1)
	}

	log.Debug().
		Str("client_id", clientID).
		Str("theme", p.Theme).
		Str("locale", p.Locale).
		Msg("Preferences saved")
	return nil
}
