package courier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
	"github.com/mamadbah2/packwrap/pkg/clients/steadfast"
	"github.com/mamadbah2/packwrap/pkg/vault"
)

var (
	ErrMissingCredentials = steadfast.ErrMissingCredentials
	ErrMissingOrder       = errors.New("order is required")
	ErrVaultEmpty         = errors.New("no courier credentials saved")
	ErrVerification       = errors.New("courier rejected the credentials")
)

// VaultStatus tells whether sealed credentials exist, without opening them.
type VaultStatus struct {
	Saved   bool   `json:"saved"`
	SavedAt string `json:"savedAt,omitempty"`
}

// Service proxies courier calls and keeps each account's sealed API keys.
type Service struct {
	client steadfast.Client
	vault  *vault.Vault
	store  kv.Store
	logger *zap.Logger
}

// NewService wires the courier service.
func NewService(client steadfast.Client, v *vault.Vault, store kv.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, vault: v, store: store, logger: logger}
}

// Balance forwards a balance check with caller-supplied keys.
func (s *Service) Balance(ctx context.Context, creds models.CourierCredentials) (map[string]any, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	return s.client.GetBalance(ctx, creds)
}

// PlaceOrder forwards an order with caller-supplied keys.
func (s *Service) PlaceOrder(ctx context.Context, creds models.CourierCredentials, order any) (map[string]any, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}
	if isEmptyOrder(order) {
		return nil, ErrMissingOrder
	}
	return s.client.PlaceOrder(ctx, creds, order)
}

func isEmptyOrder(order any) bool {
	switch o := order.(type) {
	case nil:
		return true
	case map[string]any:
		return len(o) == 0
	}
	return false
}

// SaveCredentials checks the keys against the courier, then seals them under
// the passphrase and stores the blob in the account's namespace.
func (s *Service) SaveCredentials(ctx context.Context, ns, passphrase string, creds models.CourierCredentials) (VaultStatus, error) {
	if !creds.Complete() {
		return VaultStatus{}, ErrMissingCredentials
	}
	if passphrase == "" {
		return VaultStatus{}, vault.ErrEmptyPassphrase
	}

	if _, err := s.client.GetBalance(ctx, creds); err != nil {
		s.logger.Warn("courier credential check failed", zap.String("namespace", ns), zap.Error(err))
		return VaultStatus{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	sealed, err := s.vault.Seal(passphrase, ns, creds)
	if err != nil {
		return VaultStatus{}, err
	}
	if err := s.store.Set(ctx, ns, kv.KeyCourierVault, sealed); err != nil {
		return VaultStatus{}, fmt.Errorf("store sealed credentials: %w", err)
	}

	s.logger.Info("courier credentials saved", zap.String("namespace", ns))
	return VaultStatus{Saved: true, SavedAt: sealed.Timestamp}, nil
}

// Status reports whether sealed credentials exist.
func (s *Service) Status(ctx context.Context, ns string) (VaultStatus, error) {
	var sealed vault.Sealed
	found, err := s.store.Get(ctx, ns, kv.KeyCourierVault, &sealed)
	if err != nil {
		return VaultStatus{}, fmt.Errorf("load sealed credentials: %w", err)
	}
	if !found {
		return VaultStatus{}, nil
	}
	return VaultStatus{Saved: true, SavedAt: sealed.Timestamp}, nil
}

// Unlock opens the stored credentials with the passphrase.
func (s *Service) Unlock(ctx context.Context, ns, passphrase string) (models.CourierCredentials, error) {
	var sealed vault.Sealed
	found, err := s.store.Get(ctx, ns, kv.KeyCourierVault, &sealed)
	if err != nil {
		return models.CourierCredentials{}, fmt.Errorf("load sealed credentials: %w", err)
	}
	if !found {
		return models.CourierCredentials{}, ErrVaultEmpty
	}

	var creds models.CourierCredentials
	if err := s.vault.Open(passphrase, ns, sealed, &creds); err != nil {
		return models.CourierCredentials{}, err
	}
	return creds, nil
}

// DeleteCredentials forgets the stored credentials.
func (s *Service) DeleteCredentials(ctx context.Context, ns string) error {
	if err := s.store.Delete(ctx, ns, kv.KeyCourierVault); err != nil {
		return fmt.Errorf("delete sealed credentials: %w", err)
	}
	s.logger.Info("courier credentials deleted", zap.String("namespace", ns))
	return nil
}

// PlaceOrderWithVault unlocks the stored keys and places the order with them.
func (s *Service) PlaceOrderWithVault(ctx context.Context, ns, passphrase string, order any) (map[string]any, error) {
	creds, err := s.Unlock(ctx, ns, passphrase)
	if err != nil {
		return nil, err
	}
	return s.PlaceOrder(ctx, creds, order)
}
