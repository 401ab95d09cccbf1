package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	pricingdomain "github.com/pathworklabs/pathwork/internal/pricing/domain"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

// abortWithError maps domain errors onto HTTP status codes and a stable error
// code. Unknown errors become an opaque 500; raw error strings from the
// storage layer are never surfaced to clients.
func abortWithError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, walletdomain.ErrInsufficientCredits):
		status, code = http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, pricingdomain.ErrPlanNotEligible):
		status, code = http.StatusForbidden, "plan_not_eligible"
	case errors.Is(err, pricingdomain.ErrUnknownFeature):
		status, code = http.StatusBadRequest, "unknown_feature"
	case errors.Is(err, walletdomain.ErrInvalidCurrency),
		errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, accountdomain.ErrInvalidPlan),
		errors.Is(err, ledgerdomain.ErrInvalidEntry):
		status, code = http.StatusBadRequest, err.Error()
	case errors.Is(err, accountdomain.ErrAccountNotFound),
		errors.Is(err, accountdomain.ErrTenantNotFound),
		errors.Is(err, walletdomain.ErrWalletNotFound),
		errors.Is(err, runnerdomain.ErrJobNotFound),
		errors.Is(err, ledgerdomain.ErrEntryNotFound):
		status, code = http.StatusNotFound, err.Error()
	case errors.Is(err, accountdomain.ErrEmailTaken):
		status, code = http.StatusConflict, "email_taken"
	case errors.Is(err, orchestratordomain.ErrSystem):
		status, code = http.StatusInternalServerError, "system_error"
	}

	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": code})
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}
