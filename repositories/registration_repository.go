package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// RegistrationDirectory resolves participant display names. It is read-only.
type RegistrationDirectory interface {
	Names(ctx context.Context, ids []int) (map[int]string, error)
}

type postgresRegistrationDirectory struct {
	db *sql.DB
}

func NewPostgresRegistrationDirectory(db *sql.DB) RegistrationDirectory {
	return &postgresRegistrationDirectory{db: db}
}

func (r *postgresRegistrationDirectory) Names(ctx context.Context, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	arg := make([]int64, len(ids))
	for i, id := range ids {
		arg[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, display_name FROM registrations WHERE id = ANY($1)`, pq.Array(arg))
	if err != nil {
		return nil, wrapDBError("failed to query registration names", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("error iterating registration rows", err)
	}
	return names, nil
}
