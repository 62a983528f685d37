package main

import (
	"errors"

	"keybridge/internal/history"
)

var errHistoryDisabled = errors.New("activation history is disabled")

func (a *App) requireHistory() (*history.Store, error) {
	store := a.historyStore.Load()
	if store == nil {
		return nil, errHistoryDisabled
	}
	return store, nil
}
