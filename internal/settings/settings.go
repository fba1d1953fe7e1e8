// Package settings manages per-user preferences: theme, currency, spending
// limits, custom categories, and the notification opt-in.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

var (
	ErrDuplicateCategory = errors.New("category already exists")
	ErrUnknownCategory   = errors.New("unknown category")
)

const (
	DefaultTheme    = "light"
	DefaultCurrency = "BRL"
)

// Patch carries the fields Update should change. Nil fields keep the stored
// value.
type Patch struct {
	Theme                *string
	Currency             *string
	ReceiveNotifications *bool
}

// Service reads and writes user settings through the key-value store. All
// operations funnel through the same load-modify-persist path under one lock.
type Service struct {
	mu sync.Mutex
	kv *kvstore.Store
}

func New(kv *kvstore.Store) *Service {
	return &Service{kv: kv}
}

// Get returns the settings for a user. Missing users read as the defaults;
// nothing is persisted until the first mutation.
func (s *Service) Get(ctx context.Context, userID string) (core.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return core.UserSettings{}, err
	}
	for _, us := range all {
		if us.UserID == userID {
			return us, nil
		}
	}
	return defaults(userID), nil
}

// Update applies a merge patch to the user's settings, creating the row with
// defaults first if the user had none.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (core.UserSettings, error) {
	return s.mutate(ctx, userID, func(us *core.UserSettings) error {
		if patch.Theme != nil {
			if !contains(core.Themes, *patch.Theme) {
				return core.ErrInvalidTheme
			}
			us.Theme = *patch.Theme
		}
		if patch.Currency != nil {
			if !contains(core.Currencies, *patch.Currency) {
				return core.ErrInvalidCurrency
			}
			us.Currency = *patch.Currency
		}
		if patch.ReceiveNotifications != nil {
			us.ReceiveNotifications = *patch.ReceiveNotifications
		}
		return nil
	})
}

// SetCategoryLimit upserts the monthly spending limit for one category.
func (s *Service) SetCategoryLimit(ctx context.Context, userID string, category core.Category, limit core.Money) (core.UserSettings, error) {
	if err := limit.Validate(); err != nil {
		return core.UserSettings{}, err
	}
	return s.mutate(ctx, userID, func(us *core.UserSettings) error {
		for i := range us.CategoryLimits {
			if us.CategoryLimits[i].Category == category {
				us.CategoryLimits[i].Limit = limit
				return nil
			}
		}
		us.CategoryLimits = append(us.CategoryLimits, core.CategoryLimit{Category: category, Limit: limit})
		return nil
	})
}

// RemoveCategoryLimit drops the limit for a category. Removing a limit that
// was never set is a no-op.
func (s *Service) RemoveCategoryLimit(ctx context.Context, userID string, category core.Category) (core.UserSettings, error) {
	return s.mutate(ctx, userID, func(us *core.UserSettings) error {
		kept := us.CategoryLimits[:0]
		for _, cl := range us.CategoryLimits {
			if cl.Category != category {
				kept = append(kept, cl)
			}
		}
		us.CategoryLimits = kept
		return nil
	})
}

// SetTotalLimit sets the overall monthly spending limit. Zero clears it.
func (s *Service) SetTotalLimit(ctx context.Context, userID string, limit core.Money) (core.UserSettings, error) {
	if limit.Cents < 0 {
		return core.UserSettings{}, core.ErrInvalidAmount
	}
	return s.mutate(ctx, userID, func(us *core.UserSettings) error {
		us.TotalLimit = limit
		return nil
	})
}

// AddCustomCategory registers a user-defined expense category. Duplicates of
// either the built-in set or an existing custom category are rejected.
func (s *Service) AddCustomCategory(ctx context.Context, userID, name string) (core.UserSettings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.UserSettings{}, core.ErrEmptyCategory
	}
	for _, c := range core.DefaultCategories {
		if string(c) == name {
			return core.UserSettings{}, ErrDuplicateCategory
		}
	}
	return s.mutate(ctx, userID, func(us *core.UserSettings) error {
		for _, c := range us.CustomCategories {
			if c == name {
				return ErrDuplicateCategory
			}
		}
		us.CustomCategories = append(us.CustomCategories, name)
		return nil
	})
}

// RemoveCustomCategory drops a user-defined category. The category's limit,
// if any, goes with it.
func (s *Service) RemoveCustomCategory(ctx context.Context, userID, name string) (core.UserSettings, error) {
	return s.mutate(ctx, userID, func(us *core.UserSettings) error {
		found := false
		kept := us.CustomCategories[:0]
		for _, c := range us.CustomCategories {
			if c == name {
				found = true
				continue
			}
			kept = append(kept, c)
		}
		if !found {
			return ErrUnknownCategory
		}
		us.CustomCategories = kept

		limits := us.CategoryLimits[:0]
		for _, cl := range us.CategoryLimits {
			if string(cl.Category) != name {
				limits = append(limits, cl)
			}
		}
		us.CategoryLimits = limits
		return nil
	})
}

// Categories returns the full category set for a user: built-ins followed by
// custom ones, in insertion order.
func (s *Service) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	us, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cats := make([]core.Category, 0, len(core.DefaultCategories)+len(us.CustomCategories))
	cats = append(cats, core.DefaultCategories...)
	for _, c := range us.CustomCategories {
		cats = append(cats, core.Category(c))
	}
	return cats, nil
}

// CategoryLimit returns the stored limit for a category and whether one is set.
func (s *Service) CategoryLimit(ctx context.Context, userID string, category core.Category) (core.Money, bool, error) {
	us, err := s.Get(ctx, userID)
	if err != nil {
		return core.Money{}, false, err
	}
	for _, cl := range us.CategoryLimits {
		if cl.Category == category {
			return cl.Limit, true, nil
		}
	}
	return core.Money{}, false, nil
}

func (s *Service) mutate(ctx context.Context, userID string, fn func(*core.UserSettings) error) (core.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return core.UserSettings{}, err
	}

	idx := -1
	for i := range all {
		if all[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		all = append(all, defaults(userID))
		idx = len(all) - 1
	}

	if err := fn(&all[idx]); err != nil {
		return core.UserSettings{}, err
	}
	if err := s.kv.Put(ctx, kvstore.KeyUserSettings, all); err != nil {
		return core.UserSettings{}, fmt.Errorf("persist user settings: %w", err)
	}

	slog.DebugContext(ctx, "User settings updated", "user_id", userID)
	return all[idx], nil
}

func (s *Service) load(ctx context.Context) ([]core.UserSettings, error) {
	var all []core.UserSettings
	if err := s.kv.Get(ctx, kvstore.KeyUserSettings, &all); err != nil {
		return nil, fmt.Errorf("load user settings: %w", err)
	}
	return all, nil
}

func contains(valid []string, v string) bool {
	for _, s := range valid {
		if s == v {
			return true
		}
	}
	return false
}

func defaults(userID string) core.UserSettings {
	return core.UserSettings{
		UserID:               userID,
		Theme:                DefaultTheme,
		Currency:             DefaultCurrency,
		ReceiveNotifications: true,
	}
}
