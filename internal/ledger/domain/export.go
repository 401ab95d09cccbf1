package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

type ExportRequest struct {
	TenantID  *snowflake.ID
	AccountID *snowflake.ID
	Feature   string
	StartDate time.Time
	EndDate   time.Time
	Format    ExportFormat
}

type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Count    int
}
