package models

import (
	"fmt"
	"time"
)

// ReportRequest is a row of the report_requests table.
// Rows are readable and writable only by their owner through Row Level Security.
type ReportRequest struct {
	ID          int64      `json:"id,omitempty"`
	UserID      string     `json:"user_id"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// TableName returns the table name for the ReportRequest model
func (ReportRequest) TableName() string {
	return "report_requests"
}

// NewReportRequest creates a report request owned by userID
func NewReportRequest(userID string, now time.Time) *ReportRequest {
	return &ReportRequest{
		UserID:      userID,
		Description: fmt.Sprintf("Request generated at %s for testing purposes", now.Format(time.RFC3339)),
	}
}

// PrivateRecord is a row of the private_table, only visible to the service role
type PrivateRecord map[string]interface{}

// PrivateTableName is the table listed by the admin routes
const PrivateTableName = "private_table"
