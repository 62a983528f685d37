package main

import (
	"context"
	"log/slog"
	"time"

	"keybridge/internal/history"
)

const historyCallTimeout = 5 * time.Second

// ActivationPage is one page of stored activations, newest first.
type ActivationPage struct {
	Items  []history.Activation `json:"items"`
	Total  int                  `json:"total"`
	Offset int                  `json:"offset"`
}

// ListHotkeyActivations returns stored press/release cycles, newest first.
// limit <= 0 selects the default page size.
func (a *App) ListHotkeyActivations(offset, limit int) (ActivationPage, error) {
	store, err := a.requireHistory()
	if err != nil {
		return ActivationPage{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyCallTimeout)
	defer cancel()
	items, total, err := store.List(ctx, offset, limit)
	if err != nil {
		return ActivationPage{}, err
	}
	return ActivationPage{Items: items, Total: total, Offset: max(offset, 0)}, nil
}

// DeleteHotkeyActivation removes one stored activation.
func (a *App) DeleteHotkeyActivation(id string) error {
	store, err := a.requireHistory()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyCallTimeout)
	defer cancel()
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Debug("[DEBUG-HISTORY] activation deleted", "id", id)
	return nil
}

// MarkHotkeyActivationProcessed flags an activation as consumed by the
// recording backend and returns the updated row.
func (a *App) MarkHotkeyActivationProcessed(id string) (history.Activation, error) {
	store, err := a.requireHistory()
	if err != nil {
		return history.Activation{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyCallTimeout)
	defer cancel()
	return store.MarkProcessed(ctx, id)
}

// recentActivations backs the control pipe's history command.
func (a *App) recentActivations(limit int) ([]history.Activation, int, error) {
	page, err := a.ListHotkeyActivations(0, limit)
	if err != nil {
		return nil, 0, err
	}
	return page.Items, page.Total, nil
}
