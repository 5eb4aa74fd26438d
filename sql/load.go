package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed contents.sql
var contentsSQL string

//go:embed results.sql
var resultsSQL string

// Function lists for verification
var ContentsFunctions = []string{
	"init_contents",
	"upsert_content",
	"select_content",
	"select_contents_by_request",
	"select_contents_by_similarity",
	"delete_contents_by_request",
	"count_contents",
}

var ResultsFunctions = []string{
	"init_results",
	"insert_result",
	"select_result",
	"select_recent_results",
	"delete_result",
	"count_results",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadContentsSql loads content-related SQL functions
func LoadContentsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ContentsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing contents functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(contentsSQL)
	if err != nil {
		return fmt.Errorf("error executing contents SQL: %w", err)
	}

	exist, err := checkFunctions(db, ContentsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL contents functions loaded successfully")
	return nil
}

// LoadResultsSql loads result-related SQL functions
func LoadResultsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ResultsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing results functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(resultsSQL)
	if err != nil {
		return fmt.Errorf("error executing results SQL: %w", err)
	}

	exist, err := checkFunctions(db, ResultsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL results functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadContentsSql(db, force); err != nil {
		return err
	}

	if err := LoadResultsSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
