package testutil

import "context"

type MockWalletCaller struct {
	CreditFunc func(ctx context.Context, rewardID, userID string, amount float64, currency string) error
}

func (m *MockWalletCaller) Credit(
	ctx context.Context, rewardID, userID string, amount float64, currency string,
) error {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, rewardID, userID, amount, currency)
	}

	return nil
}
