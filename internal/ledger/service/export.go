package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ledgerdomain "github.com/pathworklabs/pathwork/internal/ledger/domain"
)

// Export produces a CSV or JSON snapshot of ledger entries for audit and
// reconciliation, with a sha256 checksum for integrity verification.
func (s *service) Export(ctx context.Context, req ledgerdomain.ExportRequest) (*ledgerdomain.ExportResult, error) {
	filter := ledgerdomain.ListFilter{
		Feature: req.Feature,
		Limit:   500,
	}
	if !req.StartDate.IsZero() {
		filter.Since = &req.StartDate
	}
	if !req.EndDate.IsZero() {
		filter.Until = &req.EndDate
	}

	var (
		entries []ledgerdomain.Entry
		err     error
	)
	switch {
	case req.AccountID != nil:
		entries, err = s.repo.ListByAccount(ctx, *req.AccountID, filter)
	case req.TenantID != nil:
		entries, err = s.repo.ListByTenant(ctx, *req.TenantID, filter)
	default:
		return nil, ledgerdomain.ErrInvalidEntry
	}
	if err != nil {
		return nil, err
	}

	var data []byte
	switch req.Format {
	case ledgerdomain.ExportFormatCSV:
		data, err = formatCSV(entries)
	case ledgerdomain.ExportFormatJSON:
		data, err = json.MarshalIndent(entries, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported export format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)

	return &ledgerdomain.ExportResult{
		Data:     data,
		Checksum: hex.EncodeToString(sum[:]),
		Format:   req.Format,
		Count:    len(entries),
	}, nil
}

func formatCSV(entries []ledgerdomain.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"timestamp",
		"account_id",
		"tenant_id",
		"feature",
		"currency",
		"amount",
		"kind",
		"run_id",
		"status",
		"metadata",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range entries {
		row := []string{
			e.CreatedAt.Format(time.RFC3339),
			e.AccountID.String(),
			e.TenantID.String(),
			e.Feature,
			e.Currency,
			strconv.FormatInt(e.Amount, 10),
			string(e.Kind),
			e.RunID,
			string(e.Status),
			string(e.Metadata),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
