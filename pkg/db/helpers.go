package db

import (
	"github.com/jackc/pgx/v5"
)

type RowScanner func(rows pgx.Rows) error

// ScanOnce scans every row into the same destinations; meant for single-row results.
func ScanOnce(dest ...any) RowScanner {
	var scanner RowScanner

	if len(dest) > 0 {
		scanner = func(rows pgx.Rows) error {
			return rows.Scan(dest...)
		}
	}

	return scanner
}

type ScanArgs []any

func ScanAll[T any](objs *[]*T, getArgs func(obj *T) ScanArgs) RowScanner {
	return func(rows pgx.Rows) error {
		var obj = new(T)

		if err := rows.Scan(getArgs(obj)...); err != nil {
			return err
		}

		*objs = append(*objs, obj)

		return nil
	}
}
