// Package account creates and administers seller wallet accounts: status
// and KYC gating, payout destination metadata, and the periodic
// ledger-vs-projection reconciliation sweep.
package account

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/ledger"
	"github.com/vendahub/ledger/internal/port"
)

// DefaultMinWithdrawalCents applies to newly created accounts until an
// operator changes it (R$ 50,00).
const DefaultMinWithdrawalCents int64 = 5000

type Registry struct {
	accounts port.AccountRepository
	ledger   *ledger.Store
	log      zerolog.Logger
}

func NewRegistry(accounts port.AccountRepository, led *ledger.Store, log zerolog.Logger) *Registry {
	return &Registry{
		accounts: accounts,
		ledger:   led,
		log:      log.With().Str("component", "accounts").Logger(),
	}
}

// Create opens a wallet for a seller. It is idempotent: calling it twice
// for the same seller returns the existing account instead of creating a
// duplicate. New accounts start active with pending KYC; KYC only gates the
// operations that require verification.
func (r *Registry) Create(ctx context.Context, sellerID, holderName string) (*domain.Account, error) {
	if existing, err := r.accounts.GetBySellerID(ctx, sellerID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	now := time.Now()
	acc := &domain.Account{
		ID:                 uuid.NewString(),
		Number:             newAccountNumber(),
		SellerID:           sellerID,
		HolderName:         holderName,
		Status:             domain.AccountActive,
		KYCStatus:          domain.KYCPending,
		MinWithdrawalCents: DefaultMinWithdrawalCents,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, port.ErrConflict) {
			// Lost a creation race; the winner's account is the account.
			return r.accounts.GetBySellerID(ctx, sellerID)
		}
		return nil, err
	}
	r.log.Info().Str("account", acc.ID).Str("seller", sellerID).Msg("account created")
	return acc, nil
}

// newAccountNumber derives a short human-readable account number from a
// fresh UUID.
func newAccountNumber() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) % 10000000000
	return fmt.Sprintf("VH-%010d", n)
}

func (r *Registry) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return r.accounts.GetByID(ctx, accountID)
}

func (r *Registry) GetBySeller(ctx context.Context, sellerID string) (*domain.Account, error) {
	return r.accounts.GetBySellerID(ctx, sellerID)
}

// Lookup resolves a public account number for the transfer destination
// flow. Only the number and the holder's display name are returned.
func (r *Registry) Lookup(ctx context.Context, number string) (accountNumber, holderName string, err error) {
	acc, err := r.accounts.GetByNumber(ctx, number)
	if err != nil {
		return "", "", err
	}
	return acc.Number, acc.HolderName, nil
}

// AssertUsable fails when the account cannot move funds: any status other
// than active blocks every fund-moving operation, and operations that
// require verification additionally demand approved KYC.
func (r *Registry) AssertUsable(acc *domain.Account, requireKYC bool) error {
	if acc.Status != domain.AccountActive {
		return fmt.Errorf("%w (status %s)", domain.ErrAccountBlocked, acc.Status)
	}
	if requireKYC && acc.KYCStatus != domain.KYCApproved {
		return fmt.Errorf("%w (kyc %s)", domain.ErrKYCRequired, acc.KYCStatus)
	}
	return nil
}

// SetStatus is the administrative block/suspend/close action. It takes
// effect immediately: every subsequent fund-moving operation fails until
// the status is reverted.
func (r *Registry) SetStatus(ctx context.Context, accountID string, status domain.AccountStatus) (*domain.Account, error) {
	switch status {
	case domain.AccountActive, domain.AccountBlocked, domain.AccountSuspended, domain.AccountClosed:
	default:
		return nil, fmt.Errorf("unknown account status %q", status)
	}
	var acc *domain.Account
	err := r.accounts.WithAccountLock(ctx, []string{accountID}, func(ctx context.Context) error {
		var err error
		acc, err = r.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		acc.Status = status
		return r.accounts.Update(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("account", accountID).Str("status", string(status)).Msg("account status changed")
	return acc, nil
}

// SetKYCStatus records the verification state reported by the external
// onboarding system.
func (r *Registry) SetKYCStatus(ctx context.Context, accountID string, status domain.KYCStatus) (*domain.Account, error) {
	switch status {
	case domain.KYCPending, domain.KYCSubmitted, domain.KYCReviewing, domain.KYCApproved, domain.KYCRejected, domain.KYCNeedsUpdate:
	default:
		return nil, fmt.Errorf("unknown kyc status %q", status)
	}
	var acc *domain.Account
	err := r.accounts.WithAccountLock(ctx, []string{accountID}, func(ctx context.Context) error {
		var err error
		acc, err = r.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		acc.KYCStatus = status
		return r.accounts.Update(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// SetPayoutDestination updates the account's live payout metadata for the
// destination's method. In-flight withdrawal requests keep the snapshot
// taken when they were created.
func (r *Registry) SetPayoutDestination(ctx context.Context, accountID string, dest domain.PayoutDestination) (*domain.Account, error) {
	if !dest.Configured() {
		return nil, domain.ErrMissingPayoutDestination
	}
	var acc *domain.Account
	err := r.accounts.WithAccountLock(ctx, []string{accountID}, func(ctx context.Context) error {
		var err error
		acc, err = r.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		switch dest.Method {
		case domain.MethodPIX:
			acc.PIXKey = dest.PIXKey
			acc.PIXKeyType = dest.PIXKeyType
		case domain.MethodBank:
			acc.BankName = dest.BankName
			acc.BankAgency = dest.BankAgency
			acc.BankAccount = dest.BankAccount
			acc.BankAccountType = dest.BankAccountType
		}
		return r.accounts.Update(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// SetWithdrawalPolicy updates the minimum withdrawal amount and the
// auto-withdrawal flag.
func (r *Registry) SetWithdrawalPolicy(ctx context.Context, accountID string, minCents int64, auto bool) (*domain.Account, error) {
	if minCents < 0 {
		return nil, domain.ErrInvalidAmount
	}
	var acc *domain.Account
	err := r.accounts.WithAccountLock(ctx, []string{accountID}, func(ctx context.Context) error {
		var err error
		acc, err = r.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		acc.MinWithdrawalCents = minCents
		acc.AutoWithdrawal = auto
		return r.accounts.Update(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ReconcileAll sweeps every account and checks its projection against the
// ledger fold. A diverged account is suspended on the spot so no further
// mutation can widen the damage; the divergence itself is never repaired
// here; that is an operator job.
func (r *Registry) ReconcileAll(ctx context.Context) error {
	accs, err := r.accounts.List(ctx)
	if err != nil {
		return err
	}
	var firstErr error
	for _, acc := range accs {
		if acc.Status == domain.AccountSuspended {
			continue
		}
		if err := r.ledger.Reconcile(ctx, acc.ID); err != nil {
			if errors.Is(err, domain.ErrConsistency) {
				r.log.Error().Err(err).Str("account", acc.ID).Msg("balance diverged from ledger; suspending account")
				if _, serr := r.SetStatus(ctx, acc.ID, domain.AccountSuspended); serr != nil {
					r.log.Error().Err(serr).Str("account", acc.ID).Msg("failed to suspend diverged account")
				}
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
