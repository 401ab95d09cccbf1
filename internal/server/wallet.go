package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

// @Summary      Get Wallet
// @Description  Read the account's silver and gold balances
// @Tags         wallet
// @Produce      json
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/accounts/{id}/wallet [get]
func (s *Server) GetWallet(c *gin.Context) {
	accountID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		abortBadRequest(c, "invalid_account_id")
		return
	}

	balances, err := s.wallet.GetBalances(c.Request.Context(), accountID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, balances)
}

type topUpRequest struct {
	Currency string `json:"currency" binding:"required"`
	Amount   int64  `json:"amount" binding:"required"`
	Note     string `json:"note"`
}

// TopUp credits purchased credits to the wallet and records a topup ledger
// entry.
//
// @Summary      Top Up Wallet
// @Description  Grant purchased credits to an account
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        id       path  string        true  "Account ID"
// @Param        request  body  topUpRequest  true  "Top Up Request"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/accounts/{id}/topup [post]
func (s *Server) TopUp(c *gin.Context) {
	accountID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		abortBadRequest(c, "invalid_account_id")
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request_body")
		return
	}

	account, err := s.accounts.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	currency := walletdomain.Currency(req.Currency)
	if err := s.orchestrator.TopUp(c.Request.Context(), account.ID, account.TenantID, currency, req.Amount, req.Note); err != nil {
		abortWithError(c, err)
		return
	}

	balances, err := s.wallet.GetBalances(c.Request.Context(), accountID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, balances)
}
