package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finbooks/accounting_backend/internal/apperrors"
	"github.com/finbooks/accounting_backend/internal/core/domain"
	portsrepo "github.com/finbooks/accounting_backend/internal/core/ports/repositories"
	portssvc "github.com/finbooks/accounting_backend/internal/core/ports/services"
	"github.com/finbooks/accounting_backend/internal/dto"
	"github.com/finbooks/accounting_backend/internal/middleware"
)

var (
	ErrAccountCodeExists     = errors.New("account code already exists in this company")
	ErrParentCompanyMismatch = errors.New("parent account belongs to a different company")
	ErrTypeCompanyMismatch   = errors.New("account type belongs to a different company")
	ErrCircularReference     = errors.New("account cannot be its own ancestor")
	ErrAccountInUse          = errors.New("account is in use and cannot be deactivated")
)

// maxAncestorDepth bounds the ancestor walk during cycle detection. A walk
// that has not reached a root within this many steps is treated as a cycle.
const maxAncestorDepth = 64

// accountService manages the chart-of-accounts hierarchy for a company.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewAccountService creates a new account service.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade) portssvc.AccountService {
	return &accountService{accountRepo: accountRepo}
}

// Ensure accountService implements the service interfaces.
var (
	_ portssvc.AccountService          = (*accountService)(nil)
	_ portssvc.AccountReferenceChecker = (*accountService)(nil)
)

// validateParent checks that the candidate parent exists and shares the company.
func (s *accountService) validateParent(ctx context.Context, companyID string, parentID string) (*domain.Account, error) {
	parent, err := s.accountRepo.FindAccountByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: parent account %s", apperrors.ErrNotFound, parentID)
		}
		return nil, fmt.Errorf("failed to find parent account %s: %w", parentID, err)
	}
	if parent.CompanyID != companyID {
		return nil, fmt.Errorf("%w: parent %s", ErrParentCompanyMismatch, parentID)
	}
	return parent, nil
}

// validateType checks that the account type exists and shares the company.
func (s *accountService) validateType(ctx context.Context, companyID string, accountTypeID string) error {
	accType, err := s.accountRepo.FindAccountTypeByID(ctx, accountTypeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: account type %s", apperrors.ErrNotFound, accountTypeID)
		}
		return fmt.Errorf("failed to find account type %s: %w", accountTypeID, err)
	}
	if accType.CompanyID != companyID {
		return fmt.Errorf("%w: account type %s", ErrTypeCompanyMismatch, accountTypeID)
	}
	return nil
}

// validateCode checks company-scoped code uniqueness.
func (s *accountService) validateCode(ctx context.Context, companyID, code, excludeAccountID string) error {
	exists, err := s.accountRepo.AccountCodeExists(ctx, companyID, code, excludeAccountID)
	if err != nil {
		return fmt.Errorf("failed to check account code uniqueness: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: code %q", ErrAccountCodeExists, code)
	}
	return nil
}

// checkNoCycle walks the ancestor chain starting at candidateParentID and
// fails when accountID appears in it. The walk is bounded; an unresolved walk
// fails closed as a cycle rather than looping on corrupted data.
func (s *accountService) checkNoCycle(ctx context.Context, accountID string, candidateParentID string) error {
	current := candidateParentID
	for depth := 0; depth < maxAncestorDepth; depth++ {
		if current == "" {
			return nil // reached a root
		}
		if current == accountID {
			return fmt.Errorf("%w: account %s found in its own ancestor chain", ErrCircularReference, accountID)
		}
		ancestor, err := s.accountRepo.FindAccountByID(ctx, current)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// Dangling parent reference: the chain cannot contain accountID.
				return nil
			}
			return fmt.Errorf("failed to walk ancestor chain at %s: %w", current, err)
		}
		current = ancestor.ParentAccountID
	}
	return fmt.Errorf("%w: ancestor chain deeper than %d, treating as cycle", ErrCircularReference, maxAncestorDepth)
}

// CreateAccount validates company-scoped invariants and persists a new account.
// Implements portssvc.AccountService.
func (s *accountService) CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, userID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.validateCode(ctx, companyID, req.Code, ""); err != nil {
		return nil, err
	}
	if err := s.validateType(ctx, companyID, req.AccountTypeID); err != nil {
		return nil, err
	}

	parentID := ""
	if req.ParentAccountID != nil && *req.ParentAccountID != "" {
		parentID = *req.ParentAccountID
		if _, err := s.validateParent(ctx, companyID, parentID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:       uuid.NewString(),
		CompanyID:       companyID,
		Code:            req.Code,
		Name:            req.Name,
		ParentAccountID: parentID,
		AccountTypeID:   req.AccountTypeID,
		ReportGroup:     req.ReportGroup,
		Status:          domain.AccountActive,
		IsPayable:       req.IsPayable,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		// The unique index on (company_id, code) can still fire under
		// concurrent creates; surface it the same way as the pre-check.
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: code %q", ErrAccountCodeExists, req.Code)
		}
		logger.Error("Failed to save account", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, err
	}

	logger.Info("Account created successfully", slog.String("account_id", account.AccountID), slog.String("company_id", companyID))
	return &account, nil
}

// GetAccountByID retrieves an account scoped to the company.
// Implements portssvc.AccountService and portssvc.AccountReferenceChecker.
func (s *accountService) GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find account by ID", slog.String("error", err.Error()), slog.String("account_id", accountID))
		}
		return nil, err
	}

	if account.CompanyID != companyID {
		logger.Debug("Account found but belongs to different company",
			slog.String("account_id", accountID),
			slog.String("account_company", account.CompanyID),
			slog.String("requested_company", companyID))
		// Obscure existence from other companies.
		return nil, apperrors.ErrNotFound
	}

	return account, nil
}

// GetAccountsByIDs batch-resolves accounts scoped to the company. Accounts
// that do not exist or belong to another company are absent from the result.
// Implements portssvc.AccountReferenceChecker.
func (s *accountService) GetAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by IDs: %w", err)
	}

	scoped := make(map[string]domain.Account, len(accounts))
	for id, acc := range accounts {
		if acc.CompanyID == companyID {
			scoped[id] = acc
		}
	}
	return scoped, nil
}

// UpdateAccount applies a partial update. All creation validations re-run
// against the effective post-update state, plus the ancestor cycle check.
// Implements portssvc.AccountService.
func (s *accountService) UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, userID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	// Apply updates to a copy of the current state, then validate the result.
	updated := *account
	if req.Code != nil {
		updated.Code = *req.Code
	}
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.ParentAccountID != nil {
		updated.ParentAccountID = *req.ParentAccountID
	}
	if req.AccountTypeID != nil {
		updated.AccountTypeID = *req.AccountTypeID
	}
	if req.ReportGroup != nil {
		updated.ReportGroup = *req.ReportGroup
	}
	if req.IsPayable != nil {
		updated.IsPayable = *req.IsPayable
	}

	if err := s.validateCode(ctx, companyID, updated.Code, accountID); err != nil {
		return nil, err
	}
	if err := s.validateType(ctx, companyID, updated.AccountTypeID); err != nil {
		return nil, err
	}
	if updated.ParentAccountID != "" {
		if updated.ParentAccountID == accountID {
			return nil, fmt.Errorf("%w: account %s cannot be its own parent", ErrCircularReference, accountID)
		}
		if _, err := s.validateParent(ctx, companyID, updated.ParentAccountID); err != nil {
			return nil, err
		}
		if err := s.checkNoCycle(ctx, accountID, updated.ParentAccountID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	updated.LastUpdatedAt = now
	updated.LastUpdatedBy = userID

	if err := s.accountRepo.UpdateAccount(ctx, updated); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: code %q", ErrAccountCodeExists, updated.Code)
		}
		logger.Error("Failed to update account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return nil, err
	}

	logger.Info("Account updated successfully", slog.String("account_id", accountID), slog.String("company_id", companyID))
	return &updated, nil
}

// IsAccountInUse reports whether the account is referenced by journal lines
// or parents an active child. Implements portssvc.AccountService.
func (s *accountService) IsAccountInUse(ctx context.Context, companyID string, accountID string) (bool, error) {
	if _, err := s.GetAccountByID(ctx, companyID, accountID); err != nil {
		return false, err
	}

	hasLines, err := s.accountRepo.HasJournalLines(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to check journal line references for account %s: %w", accountID, err)
	}
	if hasLines {
		return true, nil
	}

	hasChildren, err := s.accountRepo.HasActiveChildren(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to check active children for account %s: %w", accountID, err)
	}
	return hasChildren, nil
}

// DeactivateAccount soft-deletes an account that is not in use.
// Implements portssvc.AccountService.
func (s *accountService) DeactivateAccount(ctx context.Context, companyID string, accountID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	inUse, err := s.IsAccountInUse(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: account %s", ErrAccountInUse, accountID)
	}

	if err := s.accountRepo.SetAccountStatus(ctx, accountID, domain.AccountInactive, userID, time.Now().UTC()); err != nil {
		logger.Error("Failed to deactivate account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return err
	}

	logger.Info("Account deactivated successfully", slog.String("account_id", accountID), slog.String("company_id", companyID))
	return nil
}

// ReactivateAccount re-enables a deactivated account. Existence is the only
// requirement. Implements portssvc.AccountService.
func (s *accountService) ReactivateAccount(ctx context.Context, companyID string, accountID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.GetAccountByID(ctx, companyID, accountID); err != nil {
		return err
	}

	if err := s.accountRepo.SetAccountStatus(ctx, accountID, domain.AccountActive, userID, time.Now().UTC()); err != nil {
		logger.Error("Failed to reactivate account", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return err
	}

	logger.Info("Account reactivated successfully", slog.String("account_id", accountID), slog.String("company_id", companyID))
	return nil
}

// GetAccountTree returns the company's accounts reassembled into a
// parent->children tree, children ordered by code. Pure read.
// Implements portssvc.AccountService.
func (s *accountService) GetAccountTree(ctx context.Context, companyID string, includeInactive bool) ([]*domain.AccountNode, error) {
	accounts, err := s.accountRepo.ListAccountsByCompany(ctx, companyID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for company %s: %w", companyID, err)
	}

	nodes := make(map[string]*domain.AccountNode, len(accounts))
	for _, acc := range accounts {
		nodes[acc.AccountID] = &domain.AccountNode{Account: acc}
	}

	roots := make([]*domain.AccountNode, 0)
	for _, acc := range accounts {
		node := nodes[acc.AccountID]
		if parent, ok := nodes[acc.ParentAccountID]; ok && acc.ParentAccountID != acc.AccountID {
			parent.Children = append(parent.Children, node)
		} else {
			// Root, or the parent is filtered out (inactive): surface at top level.
			roots = append(roots, node)
		}
	}

	sortNodesByCode(roots)
	for _, node := range nodes {
		sortNodesByCode(node.Children)
	}

	return roots, nil
}

func sortNodesByCode(nodes []*domain.AccountNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Account.Code < nodes[j].Account.Code
	})
}
