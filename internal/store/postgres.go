// postgres.go — бэкенд хранилища записей на PostgreSQL.
// Записи хранятся в таблице records (collection, id, seq, data jsonb).
// Порядок вставки — по seq. Изменения одной коллекции сериализуются
// транзакционной advisory-блокировкой.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore — хранилище записей в PostgreSQL.
type PostgresStore struct {
	pool    *pgxpool.Pool
	stamper stamper
}

// NewPostgresStore создаёт хранилище поверх пула подключений.
// Схема должна быть создана миграциями пакета database.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		stamper: newStamper(opts),
	}
}

// ReadAll возвращает все записи коллекции в порядке вставки.
func (s *PostgresStore) ReadAll(ctx context.Context, collection string) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT data FROM records WHERE collection = $1 ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение %s: %w", ErrIO, collection, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: чтение %s: %w", ErrIO, collection, err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: чтение %s: %w", ErrIO, collection, err)
	}
	return records, nil
}

// FindMany возвращает записи, удовлетворяющие предикату.
// Предикат вычисляется на стороне приложения.
func (s *PostgresStore) FindMany(ctx context.Context, collection string, pred Predicate) ([]Record, error) {
	records, err := s.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return filter(records, pred), nil
}

// FindOne возвращает первую запись, удовлетворяющую предикату.
func (s *PostgresStore) FindOne(ctx context.Context, collection string, pred Predicate) (Record, bool, error) {
	records, err := s.FindMany(ctx, collection, pred)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

// Insert добавляет запись в коллекцию.
func (s *PostgresStore) Insert(ctx context.Context, collection string, fields Record) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	rec, err := s.stamper.prepareInsert(fields)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: сериализация %s: %w", ErrIO, collection, err)
	}

	err = s.inCollectionTx(ctx, collection, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO records (collection, id, data) VALUES ($1, $2, $3)`,
			collection, rec.ID(), data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: вставка в %s: %w", ErrIO, collection, err)
	}

	return cloneRecord(rec)
}

// Update сливает patch с записью id внутри транзакции.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, patch Record) (Record, bool, error) {
	if err := validateCollection(collection); err != nil {
		return nil, false, err
	}

	var (
		merged Record
		found  bool
	)
	err := s.inCollectionTx(ctx, collection, func(tx pgx.Tx) error {
		var data []byte
		err := tx.QueryRow(ctx,
			`SELECT data FROM records WHERE collection = $1 AND id = $2`,
			collection, id).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		var current Record
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("%w: %s/%s: %w", ErrCorrupt, collection, id, err)
		}

		merged = s.stamper.applyPatch(current, patch)
		updated, err := json.Marshal(merged)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE records SET data = $3 WHERE collection = $1 AND id = $2`,
			collection, id, updated); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%w: обновление %s/%s: %w", ErrIO, collection, id, err)
	}
	if !found {
		return nil, false, nil
	}

	out, err := cloneRecord(merged)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Remove удаляет запись id.
func (s *PostgresStore) Remove(ctx context.Context, collection, id string) (bool, error) {
	if err := validateCollection(collection); err != nil {
		return false, err
	}

	var removed bool
	err := s.inCollectionTx(ctx, collection, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM records WHERE collection = $1 AND id = $2`, collection, id)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: удаление %s/%s: %w", ErrIO, collection, id, err)
	}
	return removed, nil
}

// inCollectionTx выполняет fn в транзакции под advisory-блокировкой коллекции.
func (s *PostgresStore) inCollectionTx(ctx context.Context, collection string, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, collection); err != nil {
			return err
		}
		return fn(tx)
	})
}
