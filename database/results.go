package database

import (
	dbsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
	loadSql "github.com/siherrmann/mesher/sql"
)

// ResultsDBHandlerFunctions defines the interface for results database operations.
type ResultsDBHandlerFunctions interface {
	InsertResult(result *model.AnalysisResult) error
	SelectResult(requestID string) (*model.AnalysisResult, error)
	SelectRecentResults(limit int) ([]*model.AnalysisResult, error)
	DeleteResult(requestID string) (int, error)
	CountResults() (int64, error)
}

// ResultsDBHandler handles analysis-result database operations
type ResultsDBHandler struct {
	db *helper.Database
}

// NewResultsDBHandler creates a new results database handler.
// It initializes the database connection and loads result-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewResultsDBHandler(db *helper.Database, force bool) (*ResultsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	resultsDbHandler := &ResultsDBHandler{
		db: db,
	}

	err := loadSql.LoadResultsSql(resultsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load results sql", err)
	}

	err = resultsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ResultsDBHandler")

	return resultsDbHandler, nil
}

// CreateTable creates the 'results' table in the database.
// If the table already exists, it does not create it again.
func (h *ResultsDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_results();`)
	if err != nil {
		return helper.NewError("initialize results table", err)
	}

	h.db.Logger.Info("Checked/created table results")

	return nil
}

// InsertResult stores the full analysis result as a JSONB document keyed by
// its request id. Inserting the same request id again replaces the document.
func (h *ResultsDBHandler) InsertResult(result *model.AnalysisResult) error {
	document, err := json.Marshal(result)
	if err != nil {
		return helper.NewError("marshal result", err)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_result($1, $2)`,
		result.RequestID,
		document,
	)

	var rowID int
	var requestID string
	var stored []byte
	var createdAt time.Time
	err = row.Scan(&rowID, &requestID, &stored, &createdAt)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectResult retrieves a stored analysis result by request id.
// Returns (nil, nil) when no result exists for the id.
func (h *ResultsDBHandler) SelectResult(requestID string) (*model.AnalysisResult, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_result($1)`,
		requestID,
	)

	var rowID int
	var storedRequestID string
	var document []byte
	var createdAt time.Time
	err := row.Scan(&rowID, &storedRequestID, &document, &createdAt)
	if errors.Is(err, dbsql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	result := &model.AnalysisResult{}
	err = json.Unmarshal(document, result)
	if err != nil {
		return nil, helper.NewError("unmarshal result", err)
	}

	return result, nil
}

// SelectRecentResults retrieves the most recently stored results, newest
// first
func (h *ResultsDBHandler) SelectRecentResults(limit int) ([]*model.AnalysisResult, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_results($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.AnalysisResult
	for rows.Next() {
		var rowID int
		var requestID string
		var document []byte
		var createdAt time.Time
		err := rows.Scan(&rowID, &requestID, &document, &createdAt)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		result := &model.AnalysisResult{}
		err = json.Unmarshal(document, result)
		if err != nil {
			return nil, helper.NewError("unmarshal result", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate rows", err)
	}

	return results, nil
}

// DeleteResult deletes a stored result and returns the deleted count
func (h *ResultsDBHandler) DeleteResult(requestID string) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_result($1)`,
		requestID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

// CountResults returns the total number of stored results
func (h *ResultsDBHandler) CountResults() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_results()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
