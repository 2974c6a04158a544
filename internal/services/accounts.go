package services

import (
	"context"
	"fmt"
	"strings"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, id int64, p storage.AccountPatch) (core.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// AccountService manages the account registry. Deleting an account leaves
// its transactions in place with a dangling reference, by the weak-link
// contract of account_id.
type AccountService struct {
	store  AccountStore
	logger *log.Logger
}

func NewAccountService(store AccountStore, logger *log.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger.WithComponent(log.ComponentApp),
	}
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	out, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.InfoContext(ctx, "Account created", log.FieldAccountID, out.ID)
	return out, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

// AccountUpdate is a partial account update.
type AccountUpdate struct {
	Name  *string `json:"name"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

func (s *AccountService) Update(ctx context.Context, id int64, u AccountUpdate) (core.Account, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return core.Account{}, core.ErrEmptyName
	}
	return s.store.UpdateAccount(ctx, id, storage.AccountPatch{
		Name:  u.Name,
		Icon:  u.Icon,
		Color: u.Color,
	})
}

func (s *AccountService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Account deleted", log.FieldAccountID, id)
	return nil
}
