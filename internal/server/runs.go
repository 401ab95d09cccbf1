package server

import (
	"encoding/json"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
)

type createRunRequest struct {
	AccountID string          `json:"account_id" binding:"required"`
	Feature   string          `json:"feature" binding:"required"`
	Payload   json.RawMessage `json:"payload"`
}

// CreateRun debits the account and enqueues one gated feature run. With
// ?wait=true the call blocks until the run settles; otherwise it returns a
// 202 handle for polling via GetRun.
//
// @Summary      Run Gated Feature
// @Description  Debit credits and enqueue an AI feature run
// @Tags         runs
// @Accept       json
// @Produce      json
// @Param        wait     query  bool              false  "Block until the run settles"
// @Param        request  body   createRunRequest  true   "Run Request"
// @Success      200  {object}  map[string]any
// @Success      202  {object}  map[string]any
// @Failure      402  {object}  map[string]any
// @Router       /api/v1/runs [post]
func (s *Server) CreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request_body")
		return
	}

	accountID, err := snowflake.ParseString(req.AccountID)
	if err != nil {
		abortBadRequest(c, "invalid_account_id")
		return
	}

	// The account row is authoritative for plan and tenant; clients do not
	// get to claim a tier.
	account, err := s.accounts.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	wait := c.Query("wait") == "true"
	outcome, err := s.orchestrator.RunGatedFeature(c.Request.Context(), orchestratordomain.RunRequest{
		AccountID: account.ID,
		TenantID:  account.TenantID,
		Feature:   req.Feature,
		Plan:      account.Plan,
		Payload:   req.Payload,
		Wait:      wait,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	switch outcome.Status {
	case orchestratordomain.RunFailed:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "job_failed", "data": outcome})
	case orchestratordomain.RunSucceeded:
		respondData(c, outcome)
	default:
		respondAccepted(c, outcome)
	}
}

// @Summary      Get Run
// @Description  Poll the state of a submitted run
// @Tags         runs
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/runs/{id} [get]
func (s *Server) GetRun(c *gin.Context) {
	outcome, err := s.orchestrator.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, outcome)
}
