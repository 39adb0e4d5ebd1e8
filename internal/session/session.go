package session

import (
	"errors"
	"strings"

	"pos_umkm/internal/config"
)

var ErrNoStore = errors.New("no store selected")

// Context identifies who is operating the terminal. It is passed explicitly
// to every component that needs it.
type Context struct {
	StoreID     string
	CashierID   string
	CashierName string
}

func NewContext(cfg config.Config) Context {
	return Context{
		StoreID:     strings.TrimSpace(cfg.StoreID),
		CashierID:   strings.TrimSpace(cfg.CashierID),
		CashierName: strings.TrimSpace(cfg.CashierName),
	}
}

func (c Context) RequireStore() (string, error) {
	if c.StoreID == "" {
		return "", ErrNoStore
	}
	return c.StoreID, nil
}
