package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
)

// @Summary      List Ledger Entries
// @Description  List an account's credit transactions, newest first
// @Tags         ledger
// @Produce      json
// @Param        id       path   string  true   "Account ID"
// @Param        feature  query  string  false  "Feature"
// @Param        kind     query  string  false  "Kind"
// @Param        status   query  string  false  "Status"
// @Param        since    query  string  false  "RFC 3339 lower bound"
// @Param        until    query  string  false  "RFC 3339 upper bound"
// @Param        limit    query  int     false  "Limit"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/accounts/{id}/ledger [get]
func (s *Server) ListLedger(c *gin.Context) {
	accountID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		abortBadRequest(c, "invalid_account_id")
		return
	}

	filter := ledgerdomain.ListFilter{
		Feature: c.Query("feature"),
		Kind:    ledgerdomain.Kind(c.Query("kind")),
		Status:  ledgerdomain.Status(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			abortBadRequest(c, "invalid_limit")
			return
		}
		filter.Limit = limit
	}
	if since, ok := parseTimeQuery(c, "since"); ok {
		filter.Since = since
	} else {
		return
	}
	if until, ok := parseTimeQuery(c, "until"); ok {
		filter.Until = until
	} else {
		return
	}

	entries, err := s.ledger.ListByAccount(c.Request.Context(), accountID, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, entries)
}

// ExportLedger streams the account's ledger as CSV or JSON with a sha256
// checksum header for audit verification.
//
// @Summary      Export Ledger
// @Description  Export credit transactions as CSV or JSON
// @Tags         ledger
// @Produce      json
// @Param        id      path   string  true   "Account ID"
// @Param        format  query  string  false  "csv or json"
// @Success      200  {string}  string
// @Router       /api/v1/accounts/{id}/ledger/export [get]
func (s *Server) ExportLedger(c *gin.Context) {
	accountID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		abortBadRequest(c, "invalid_account_id")
		return
	}

	format := ledgerdomain.ExportFormat(c.DefaultQuery("format", "csv"))
	if format != ledgerdomain.ExportFormatCSV && format != ledgerdomain.ExportFormatJSON {
		abortBadRequest(c, "invalid_format")
		return
	}

	req := ledgerdomain.ExportRequest{
		AccountID: &accountID,
		Feature:   c.Query("feature"),
		Format:    format,
	}
	if since, ok := parseTimeQuery(c, "since"); ok {
		if since != nil {
			req.StartDate = *since
		}
	} else {
		return
	}
	if until, ok := parseTimeQuery(c, "until"); ok {
		if until != nil {
			req.EndDate = *until
		}
	} else {
		return
	}

	result, err := s.ledger.Export(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	contentType := "text/csv"
	if result.Format == ledgerdomain.ExportFormatJSON {
		contentType = "application/json"
	}
	c.Header("X-Checksum-SHA256", result.Checksum)
	c.Header("X-Record-Count", strconv.Itoa(result.Count))
	c.Data(http.StatusOK, contentType, result.Data)
}

// TenantStats returns per-feature, per-day usage for the admin dashboard.
// Defaults to the trailing 30 days.
//
// @Summary      Tenant Usage Stats
// @Description  Aggregate debits by feature and day for a tenant
// @Tags         ledger
// @Produce      json
// @Param        slug   path   string  true   "Tenant Slug"
// @Param        since  query  string  false  "RFC 3339 lower bound"
// @Param        until  query  string  false  "RFC 3339 upper bound"
// @Success      200  {object}  map[string]any
// @Router       /api/v1/tenants/{slug}/stats [get]
func (s *Server) TenantStats(c *gin.Context) {
	tenant, err := s.accounts.GetTenantBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	until := time.Now().UTC()
	since := until.AddDate(0, 0, -30)
	if v, ok := parseTimeQuery(c, "since"); ok {
		if v != nil {
			since = *v
		}
	} else {
		return
	}
	if v, ok := parseTimeQuery(c, "until"); ok {
		if v != nil {
			until = *v
		}
	} else {
		return
	}

	stats, err := s.ledger.TenantStats(c.Request.Context(), tenant.ID, since, until)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondData(c, stats)
}

// parseTimeQuery reads an optional RFC 3339 query parameter. On a malformed
// value it writes the 400 response and returns ok=false.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		abortBadRequest(c, "invalid_"+name)
		return nil, false
	}
	return &t, true
}
