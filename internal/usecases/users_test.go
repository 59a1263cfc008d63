package usecases

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sand/crypto-wallet-admin/backend/internal/core/ports"
	"github.com/sand/crypto-wallet-admin/backend/internal/entities"
)

type fakeUserListRepo struct {
	users []entities.UserWithWallet
	total int64
	user  *entities.User

	lastSearch string
	lastLimit  int
	lastOffset int
}

func (f *fakeUserListRepo) FindActiveUsers(_ context.Context, search string, limit, offset int) ([]entities.UserWithWallet, error) {
	f.lastSearch = search
	f.lastLimit = limit
	f.lastOffset = offset
	return f.users, nil
}

func (f *fakeUserListRepo) CountActiveUsers(context.Context, string) (int64, error) {
	return f.total, nil
}

func (f *fakeUserListRepo) FindUserByID(context.Context, int64) (*entities.User, error) {
	return f.user, nil
}

type fakeUserWalletsRepo struct {
	wallet *entities.Wallet
}

func (f *fakeUserWalletsRepo) FindWalletByUserID(context.Context, int64) (*entities.Wallet, error) {
	return f.wallet, nil
}

type fakeRecentDepositsRepo struct {
	deposits  []entities.Deposit
	lastLimit int
}

func (f *fakeRecentDepositsRepo) FindRecentDepositsByUser(_ context.Context, _ int64, limit int) ([]entities.Deposit, error) {
	f.lastLimit = limit
	return f.deposits, nil
}

func TestListUsersPagination(t *testing.T) {
	repo := &fakeUserListRepo{total: 45}
	svc := NewUserService(repo, &fakeUserWalletsRepo{}, &fakeRecentDepositsRepo{})

	_, pagination, err := svc.ListUsers(context.Background(), ports.ListUsersParams{Page: 2, Limit: 20})
	require.NoError(t, err)

	require.Equal(t, 3, pagination.TotalPages)
	require.True(t, pagination.HasNext)
	require.True(t, pagination.HasPrev)
	require.Equal(t, 20, repo.lastLimit)
	require.Equal(t, 20, repo.lastOffset)
}

func TestListUsersDefaultLimit(t *testing.T) {
	repo := &fakeUserListRepo{}
	svc := NewUserService(repo, &fakeUserWalletsRepo{}, &fakeRecentDepositsRepo{})

	_, pagination, err := svc.ListUsers(context.Background(), ports.ListUsersParams{Page: 1})
	require.NoError(t, err)
	require.Equal(t, ports.DefaultUsersPageSize, pagination.Limit)
	require.Equal(t, ports.DefaultUsersPageSize, repo.lastLimit)
}

func TestListUsersValidation(t *testing.T) {
	svc := NewUserService(&fakeUserListRepo{}, &fakeUserWalletsRepo{}, &fakeRecentDepositsRepo{})

	tests := []struct {
		name   string
		params ports.ListUsersParams
		field  string
	}{
		{"zero page", ports.ListUsersParams{Page: 0, Limit: 20}, "page"},
		{"negative page", ports.ListUsersParams{Page: -1, Limit: 20}, "page"},
		{"limit too large", ports.ListUsersParams{Page: 1, Limit: 101}, "limit"},
		{"negative limit", ports.ListUsersParams{Page: 1, Limit: -5}, "limit"},
		{"overlong search", ports.ListUsersParams{Page: 1, Limit: 20, Search: string(make([]byte, 101))}, "search"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.ListUsers(context.Background(), tc.params)

			var vErr *entities.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestGetUserDetail(t *testing.T) {
	users := &fakeUserListRepo{
		user: &entities.User{ID: 42, FullName: "Alice Doe", Email: "alice@example.com", IsActive: true},
	}
	wallets := &fakeUserWalletsRepo{
		wallet: &entities.Wallet{
			UserID:        42,
			Balance:       decimal.RequireFromString("50.00"),
			TotalDeposits: decimal.RequireFromString("200.00"),
		},
	}
	deposits := &fakeRecentDepositsRepo{
		deposits: []entities.Deposit{{ID: 1, UserID: 42}},
	}
	svc := NewUserService(users, wallets, deposits)

	detail, err := svc.GetUserDetail(context.Background(), 42)
	require.NoError(t, err)

	require.Equal(t, "Alice Doe", detail.User.FullName)
	require.True(t, detail.Wallet.Balance.Equal(decimal.RequireFromString("50.00")))
	require.Len(t, detail.RecentDeposits, 1)
	require.Equal(t, ports.RecentDepositsLimit, deposits.lastLimit)
}

func TestGetUserDetailNotFound(t *testing.T) {
	svc := NewUserService(&fakeUserListRepo{}, &fakeUserWalletsRepo{}, &fakeRecentDepositsRepo{})

	_, err := svc.GetUserDetail(context.Background(), 404)
	require.ErrorIs(t, err, entities.ErrUserNotFound)
}
