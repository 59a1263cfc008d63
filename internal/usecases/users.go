package usecases

import (
	"context"

	"github.com/sand/crypto-wallet-admin/backend/internal/core/ports"
	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

type UsersRepository interface {
	FindActiveUsers(ctx context.Context, search string, limit, offset int) ([]entities.UserWithWallet, error)
	CountActiveUsers(ctx context.Context, search string) (int64, error)
	FindUserByID(ctx context.Context, userID int64) (*entities.User, error)
}

type UserWalletsRepository interface {
	FindWalletByUserID(ctx context.Context, userID int64) (*entities.Wallet, error)
}

type RecentDepositsRepository interface {
	FindRecentDepositsByUser(ctx context.Context, userID int64, limit int) ([]entities.Deposit, error)
}

// UserService provides the admin user views.
type UserService struct {
	users    UsersRepository
	wallets  UserWalletsRepository
	deposits RecentDepositsRepository
}

func NewUserService(users UsersRepository, wallets UserWalletsRepository, deposits RecentDepositsRepository) *UserService {
	return &UserService{users: users, wallets: wallets, deposits: deposits}
}

// ListUsers returns a page of active users with wallet summaries.
func (s *UserService) ListUsers(ctx context.Context, params ports.ListUsersParams) ([]entities.UserWithWallet, entities.Pagination, error) {
	if params.Limit == 0 {
		params.Limit = ports.DefaultUsersPageSize
	}
	if err := validatePageParams(params.Page, params.Limit); err != nil {
		return nil, entities.Pagination{}, err
	}
	if len(params.Search) > ports.MaxSearchLength {
		return nil, entities.Pagination{}, entities.NewValidationError("search", "search term is too long")
	}

	total, err := s.users.CountActiveUsers(ctx, params.Search)
	if err != nil {
		return nil, entities.Pagination{}, err
	}

	offset := (params.Page - 1) * params.Limit
	users, err := s.users.FindActiveUsers(ctx, params.Search, params.Limit, offset)
	if err != nil {
		return nil, entities.Pagination{}, err
	}

	return users, entities.NewPagination(params.Page, params.Limit, total), nil
}

// GetUserDetail returns one user with wallet summary and recent deposits.
func (s *UserService) GetUserDetail(ctx context.Context, userID int64) (*entities.UserDetail, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entities.ErrUserNotFound
	}

	detail := &entities.UserDetail{User: *user}

	wallet, err := s.wallets.FindWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		detail.Wallet = entities.WalletSummary{
			Balance:          wallet.Balance,
			TotalDeposits:    wallet.TotalDeposits,
			TotalWithdrawals: wallet.TotalWithdrawals,
		}
	}

	if detail.RecentDeposits, err = s.deposits.FindRecentDepositsByUser(ctx, userID, ports.RecentDepositsLimit); err != nil {
		return nil, err
	}

	return detail, nil
}

func validatePageParams(page, limit int) error {
	if page < 1 {
		return entities.NewValidationError("page", "page must be at least 1")
	}
	if limit < 1 || limit > ports.MaxPageSize {
		return entities.NewValidationError("limit", "limit must be between 1 and 100")
	}
	return nil
}
