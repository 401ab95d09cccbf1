package server

import (
	"github.com/gin-gonic/gin"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
)

type createTenantRequest struct {
	Name string `json:"name" binding:"required"`
}

// @Summary      Create Tenant
// @Description  Register an organizational tenant
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body  createTenantRequest  true  "Create Tenant Request"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/tenants [post]
func (s *Server) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request_body")
		return
	}

	tenant, err := s.accounts.CreateTenant(c.Request.Context(), req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, tenant)
}

// @Summary      Create Account
// @Description  Register an account and seed its wallet with the signup bonus
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request  body  domain.CreateAccountRequest  true  "Create Account Request"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /api/v1/accounts [post]
func (s *Server) CreateAccount(c *gin.Context) {
	var req accountdomain.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request_body")
		return
	}

	account, err := s.accounts.CreateAccount(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, account)
}

// ListFeatures returns the feature codes runnable through this deployment,
// with their per-plan costs.
//
// @Summary      List Features
// @Description  List gated features and per-plan costs
// @Tags         features
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/v1/features [get]
func (s *Server) ListFeatures(c *gin.Context) {
	type tierCost struct {
		Currency string `json:"currency"`
		Amount   int64  `json:"amount"`
	}
	type featureInfo struct {
		Feature string    `json:"feature"`
		Free    *tierCost `json:"free,omitempty"`
		Pro     *tierCost `json:"pro,omitempty"`
	}

	features := make([]featureInfo, 0)
	for _, code := range s.resolver.Features() {
		info := featureInfo{Feature: code}
		if cost, err := s.resolver.Resolve(code, accountdomain.PlanFree); err == nil {
			info.Free = &tierCost{Currency: string(cost.Currency), Amount: cost.Amount}
		}
		if cost, err := s.resolver.Resolve(code, accountdomain.PlanPro); err == nil {
			info.Pro = &tierCost{Currency: string(cost.Currency), Amount: cost.Amount}
		}
		features = append(features, info)
	}
	respondData(c, features)
}
