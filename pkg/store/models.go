package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Document is the persisted artifact: one balance-sheet report for one
// business date. The id is deterministic so repeated writes replace
// rather than duplicate.
type Document struct {
	ID          string         `json:"id" gorm:"primaryKey;column:id"`
	Date        string         `json:"date" gorm:"column:date;index"`
	ReportName  string         `json:"report_name" gorm:"column:report_name"`
	RecordCount int            `json:"record_count" gorm:"column:record_count"`
	InsertedAt  time.Time      `json:"inserted_at" gorm:"column:inserted_at"`
	LoadSource  string         `json:"load_source" gorm:"column:load_source"`
	Payload     datatypes.JSON `json:"payload" gorm:"column:payload"`
}

// DocumentID builds the deterministic key a report document is stored under.
func DocumentID(date, reportName string) string {
	return date + "-" + reportName
}

func NewDocument(date, reportName, loadSource string, rows []map[string]interface{}) (*Document, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return &Document{
		ID:          DocumentID(date, reportName),
		Date:        date,
		ReportName:  reportName,
		RecordCount: len(rows),
		InsertedAt:  time.Now().UTC(),
		LoadSource:  loadSource,
		Payload:     datatypes.JSON(payload),
	}, nil
}
