// Package shopping manages per-user shopping lists and their items.
package shopping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

// ItemInput describes a new list item.
type ItemInput struct {
	Name     string
	Quantity int64
	UnitCost core.Money
}

// Service stores every user's lists in one collection and filters on read.
type Service struct {
	mu sync.Mutex
	kv *kvstore.Store
}

func New(kv *kvstore.Store) *Service {
	return &Service{kv: kv}
}

// Lists returns the user's shopping lists, newest last.
func (s *Service) Lists(ctx context.Context, userID string) ([]core.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.ShoppingList
	for _, l := range all {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

// CreateList starts an empty list dated today.
func (s *Service) CreateList(ctx context.Context, userID, name string) (core.ShoppingList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ShoppingList{}, core.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return core.ShoppingList{}, err
	}

	list := core.ShoppingList{
		ID:     uuid.NewString(),
		Name:   name,
		Date:   core.Today(),
		UserID: userID,
	}
	all = append(all, list)
	if err := s.kv.Put(ctx, kvstore.KeyShoppingLists, all); err != nil {
		return core.ShoppingList{}, fmt.Errorf("persist shopping lists: %w", err)
	}

	slog.InfoContext(ctx, "Shopping list created", "list_id", list.ID, "user_id", userID)
	return list, nil
}

// AddItem appends an item and recomputes the list total. The item total is
// quantity times unit cost.
func (s *Service) AddItem(ctx context.Context, userID, listID string, in ItemInput) (core.ShoppingList, error) {
	item := core.ShoppingItem{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(in.Name),
		Quantity: in.Quantity,
		UnitCost: in.UnitCost,
	}
	if err := item.Validate(); err != nil {
		return core.ShoppingList{}, err
	}
	item.Total = core.Money{Cents: item.UnitCost.Cents * item.Quantity}

	return s.mutateList(ctx, userID, listID, func(list *core.ShoppingList) error {
		list.Items = append(list.Items, item)
		return nil
	})
}

// ToggleItem flips the checked flag on an item.
func (s *Service) ToggleItem(ctx context.Context, userID, listID, itemID string) (core.ShoppingList, error) {
	return s.mutateList(ctx, userID, listID, func(list *core.ShoppingList) error {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items[i].Checked = !list.Items[i].Checked
				return nil
			}
		}
		return core.ErrNotFound
	})
}

// RemoveItem drops an item and recomputes the list total.
func (s *Service) RemoveItem(ctx context.Context, userID, listID, itemID string) (core.ShoppingList, error) {
	return s.mutateList(ctx, userID, listID, func(list *core.ShoppingList) error {
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items = append(list.Items[:i], list.Items[i+1:]...)
				return nil
			}
		}
		return core.ErrNotFound
	})
}

// CompleteList marks the list done. Completed lists stay readable.
func (s *Service) CompleteList(ctx context.Context, userID, listID string) (core.ShoppingList, error) {
	return s.mutateList(ctx, userID, listID, func(list *core.ShoppingList) error {
		list.IsCompleted = true
		return nil
	})
}

// DeleteList removes the list entirely.
func (s *Service) DeleteList(ctx context.Context, userID, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := all[:0]
	for _, l := range all {
		if l.ID == listID && l.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return core.ErrNotFound
	}

	if err := s.kv.Put(ctx, kvstore.KeyShoppingLists, kept); err != nil {
		return fmt.Errorf("persist shopping lists: %w", err)
	}
	return nil
}

func (s *Service) mutateList(ctx context.Context, userID, listID string, fn func(*core.ShoppingList) error) (core.ShoppingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return core.ShoppingList{}, err
	}

	for i := range all {
		if all[i].ID != listID || all[i].UserID != userID {
			continue
		}
		if err := fn(&all[i]); err != nil {
			return core.ShoppingList{}, err
		}
		recomputeTotal(&all[i])
		if err := s.kv.Put(ctx, kvstore.KeyShoppingLists, all); err != nil {
			return core.ShoppingList{}, fmt.Errorf("persist shopping lists: %w", err)
		}
		return all[i], nil
	}
	return core.ShoppingList{}, core.ErrNotFound
}

func recomputeTotal(list *core.ShoppingList) {
	var total core.Money
	for _, it := range list.Items {
		total = total.Add(it.Total)
	}
	list.TotalCost = total
}

func (s *Service) load(ctx context.Context) ([]core.ShoppingList, error) {
	var lists []core.ShoppingList
	if err := s.kv.Get(ctx, kvstore.KeyShoppingLists, &lists); err != nil {
		return nil, fmt.Errorf("load shopping lists: %w", err)
	}
	return lists, nil
}
