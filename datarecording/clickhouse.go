package datarecording

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseOptions locate the server a ClickHouseSink writes to.
type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string

	// BatchSize is the number of rows sent at once. Defaults to 10000.
	BatchSize int
}

// ClickHouseSink stores records into a ClickHouse table. Rows are buffered
// and sent as one batch per flush.
type ClickHouseSink struct {
	conn      clickhouse.Conn
	table     string
	schema    *Schema
	entries   [][]any
	batchSize int
}

// NewClickHouseSink connects to the server and creates the table.
func NewClickHouseSink(
	opts ClickHouseOptions,
	table string,
	schema *Schema,
) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 5,
		MaxOpenConns:     2,
		MaxIdleConns:     2,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, clickhouseCreateTableSQL(table, schema)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10000
	}

	return &ClickHouseSink{
		conn:      conn,
		table:     table,
		schema:    schema,
		batchSize: batchSize,
	}, nil
}

func clickhouseIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func clickhouseColumnType(field string) string {
	switch field {
	case FieldStateID:
		return "String"
	case FieldTimestamp:
		return "Float64"
	case FieldAppTimeUs:
		return "UInt64"
	default:
		return "Nullable(Float64)"
	}
}

func clickhouseCreateTableSQL(table string, schema *Schema) string {
	columns := make([]string, 0, schema.Len())
	for _, f := range schema.Fields() {
		columns = append(columns, clickhouseIdent(f)+" "+clickhouseColumnType(f))
	}

	order := "tuple()"
	if schema.Has(FieldAppTimeUs) {
		order = clickhouseIdent(FieldAppTimeUs)
	}

	return "CREATE TABLE IF NOT EXISTS " + clickhouseIdent(table) + " (\n\t" +
		strings.Join(columns, ",\n\t") + "\n) ENGINE = MergeTree()\nORDER BY " +
		order
}

// clickhouseRow converts record values to the column types of the table.
// Unset outputs become NULL.
func clickhouseRow(fields []string, values []any) []any {
	row := make([]any, len(values))

	for i, v := range values {
		if clickhouseColumnType(fields[i]) != "Nullable(Float64)" {
			row[i] = v
			continue
		}

		switch x := v.(type) {
		case nil:
			row[i] = (*float64)(nil)
		case float64:
			row[i] = &x
		default:
			row[i] = v
		}
	}

	return row
}

// Write buffers a row. The batch is sent once it is full.
func (s *ClickHouseSink) Write(rec *Record) error {
	s.entries = append(s.entries, clickhouseRow(s.schema.fields, rec.Values()))

	if len(s.entries) >= s.batchSize {
		return s.Flush()
	}

	return nil
}

// Flush sends the buffered rows. A batch that fails is dropped once the
// error is returned.
func (s *ClickHouseSink) Flush() error {
	if len(s.entries) == 0 {
		return nil
	}

	entries := s.entries
	s.entries = nil

	ctx := context.Background()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+clickhouseIdent(s.table))
	if err != nil {
		return fmt.Errorf("prepare batch for %s: %w", s.table, err)
	}

	for _, row := range entries {
		if err := batch.Append(row...); err != nil {
			batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Close flushes and closes the connection.
func (s *ClickHouseSink) Close() error {
	err := s.Flush()

	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}

	return err
}
