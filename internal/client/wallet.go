package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/referlab/backend/pkg/xcontext"
)

// WalletCaller credits a user balance. Implementations must be idempotent
// per reward id: crediting the same reward twice moves funds once.
type WalletCaller interface {
	Credit(ctx context.Context, rewardID, userID string, amount float64, currency string) error
}

type creditRequest struct {
	RewardID string  `json:"reward_id"`
	UserID   string  `json:"user_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type walletCaller struct {
	client *http.Client
}

func NewWalletCaller() *walletCaller {
	return &walletCaller{client: &http.Client{}}
}

func (c *walletCaller) Credit(
	ctx context.Context, rewardID, userID string, amount float64, currency string,
) error {
	cfg := xcontext.Configs(ctx).Wallet
	body, err := json.Marshal(creditRequest{
		RewardID: rewardID,
		UserID:   userID,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, cfg.Endpoint+"/credit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wallet sink returned status %d", resp.StatusCode)
	}

	return nil
}
