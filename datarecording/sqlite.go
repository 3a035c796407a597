package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink stores records into a table of a SQLite database. Rows are
// batched and inserted in one transaction per flush.
type SQLiteSink struct {
	*sql.DB

	table     string
	schema    *Schema
	entries   [][]any
	batchSize int
}

// NewSQLiteSink creates a new database file at path and a table with one
// column per schema field. It refuses to overwrite an existing file.
func NewSQLiteSink(path, table string, schema *Schema) (*SQLiteSink, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	s, err := NewSQLiteSinkWithDB(db, table, schema)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewSQLiteSinkWithDB creates the table in an already opened database.
func NewSQLiteSinkWithDB(
	db *sql.DB,
	table string,
	schema *Schema,
) (*SQLiteSink, error) {
	s := &SQLiteSink{
		DB:        db,
		table:     table,
		schema:    schema,
		batchSize: 10000,
	}

	columns := make([]string, 0, schema.Len())
	for _, f := range schema.Fields() {
		columns = append(columns, quoteIdent(f))
	}

	createTableSQL := `CREATE TABLE ` + quoteIdent(table) +
		` (` + "\n\t" + strings.Join(columns, ", \n\t") + "\n" + `);`
	if _, err := s.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	return s, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Write buffers a row. The batch is inserted once it is full.
func (s *SQLiteSink) Write(rec *Record) error {
	s.entries = append(s.entries, rec.Values())

	if len(s.entries) >= s.batchSize {
		return s.Flush()
	}

	return nil
}

// Flush inserts all the buffered rows. A batch that fails is dropped once
// the error is returned, so a broken database does not grow the buffer.
func (s *SQLiteSink) Flush() error {
	if len(s.entries) == 0 {
		return nil
	}

	entries := s.entries
	s.entries = nil

	tx, err := s.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(s.insertSQL())
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, v := range entries {
		if _, err := stmt.Exec(v...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteSink) insertSQL() string {
	n := make([]string, s.schema.Len())
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + quoteIdent(s.table) +
		" VALUES (" + strings.Join(n, ", ") + ")"
}

// Close flushes and closes the database.
func (s *SQLiteSink) Close() error {
	err := s.Flush()

	if cerr := s.DB.Close(); err == nil {
		err = cerr
	}

	return err
}
