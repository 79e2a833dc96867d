package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func NewDB(pool *pgxpool.Pool, log *zap.Logger) *DB {
	return &DB{
		log:  log,
		pool: pool,
		conn: pool,
	}
}

type DB struct {
	log  *zap.Logger
	pool *pgxpool.Pool
	conn conn
}

func (db *DB) Select(ctx context.Context, query sq.SelectBuilder, scanner RowScanner) error {
	return db.build(ctx, "select", query.PlaceholderFormat(sq.Dollar), scanner)
}

func (db *DB) Insert(ctx context.Context, query sq.InsertBuilder, scanner RowScanner) error {
	return db.build(ctx, "insert", query.PlaceholderFormat(sq.Dollar), scanner)
}

func (db *DB) Update(ctx context.Context, query sq.UpdateBuilder, scanner RowScanner) error {
	return db.build(ctx, "update", query.PlaceholderFormat(sq.Dollar), scanner)
}

func (db *DB) RawQuery(ctx context.Context, scanner RowScanner, sql string, args ...any) error {
	return db.query(ctx, sql, args, scanner)
}

func (db *DB) build(ctx context.Context, kind string, query sqlizer, scanner RowScanner) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", kind, err)
	}

	if err := db.query(ctx, sql, args, scanner); err != nil {
		return fmt.Errorf("exec %s query: %w", kind, err)
	}

	return nil
}

// query returns pgx.ErrNoRows when a scanner is given and the result set is empty.
func (db *DB) query(ctx context.Context, sql string, args []any, scanner RowScanner) error {
	start := time.Now()
	defer func() {
		db.logQuery(time.Since(start), sql, args)
	}()

	rows, err := db.conn.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("exec query: %w", err)
	}
	defer rows.Close()

	var isAnyRowProcessed bool
	for rows.Next() {
		if scanner == nil {
			continue
		}

		if err = scanner(rows); err != nil {
			return fmt.Errorf("handle row: %w", err)
		}

		isAnyRowProcessed = true
	}

	// Err must only be called after the Rows is closed (either by calling Close or by Next returning false)
	if err = rows.Err(); err != nil {
		return fmt.Errorf("reading query result: %w", err)
	}

	if scanner != nil && !isAnyRowProcessed {
		return pgx.ErrNoRows
	}

	return nil
}

// RunInTransaction hands f a DB bound to a single transaction; f's error rolls it back.
func (db *DB) RunInTransaction(ctx context.Context, f func(ctx context.Context, txDB *DB) error) error {
	err := pgx.BeginTxFunc(ctx, db.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		txDB := &DB{
			log:  db.log,
			pool: db.pool,
			conn: tx,
		}

		return f(ctx, txDB)
	})
	if err != nil {
		return fmt.Errorf("run in transaction: %w", err)
	}

	return nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) logQuery(dur time.Duration, sql string, args []any) {
	if !db.log.Core().Enabled(zap.DebugLevel) {
		return
	}

	fields := []zap.Field{
		zap.String("sql", compactSQL(sql)),
		zap.Any("args", args),
		zap.Duration("dur", dur),
	}
	if db.pool != nil {
		stat := db.pool.Stat()
		fields = append(fields,
			zap.Int32("conn_limit", stat.MaxConns()),
			zap.Int32("conn_used", stat.TotalConns()),
		)
	}

	db.log.Debug("db request", fields...)
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
