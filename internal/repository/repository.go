// Пакет repository — типизированный доступ к коллекциям хранилища записей.
// Репозитории преобразуют store.Record в доменные модели и обратно
// через JSON, не добавляя собственной логики предметной области.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bigkaa/sibo/internal/store"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// Имена коллекций.
const (
	CollectionUsers         = "users"
	CollectionScholarships  = "scholarships"
	CollectionApplications  = "applications"
	CollectionDocuments     = "documents"
	CollectionNotifications = "notifications"
)

// Collections возвращает все коллекции SIBO (для инициализации хранилища).
func Collections() []string {
	return []string{
		CollectionUsers,
		CollectionScholarships,
		CollectionApplications,
		CollectionDocuments,
		CollectionNotifications,
	}
}

// collection — типизированная обёртка над одной коллекцией.
type collection[T any] struct {
	store store.Store
	name  string
}

func newCollection[T any](s store.Store, name string) collection[T] {
	return collection[T]{store: s, name: name}
}

// find возвращает записи, удовлетворяющие предикату, в порядке хранения.
func (c collection[T]) find(ctx context.Context, pred store.Predicate) ([]*T, error) {
	records, err := c.store.FindMany(ctx, c.name, pred)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", c.name, err)
	}

	out := make([]*T, 0, len(records))
	for _, r := range records {
		v, err := decode[T](r)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора записи %s/%s: %w", c.name, r.ID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// first возвращает первую подходящую запись или ErrNotFound.
func (c collection[T]) first(ctx context.Context, pred store.Predicate) (*T, error) {
	r, ok, err := c.store.FindOne(ctx, c.name, pred)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", c.name, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	v, err := decode[T](r)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора записи %s/%s: %w", c.name, r.ID(), err)
	}
	return v, nil
}

// get возвращает запись по id или ErrNotFound.
func (c collection[T]) get(ctx context.Context, id string) (*T, error) {
	return c.first(ctx, store.Eq(store.FieldID, id))
}

// count возвращает количество подходящих записей.
func (c collection[T]) count(ctx context.Context, pred store.Predicate) (int, error) {
	records, err := c.store.FindMany(ctx, c.name, pred)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения %s: %w", c.name, err)
	}
	return len(records), nil
}

// insert сохраняет модель. id и createdAt присваивает хранилище.
func (c collection[T]) insert(ctx context.Context, v *T) (*T, error) {
	fields, err := encode(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации %s: %w", c.name, err)
	}
	r, err := c.store.Insert(ctx, c.name, fields)
	if err != nil {
		return nil, fmt.Errorf("ошибка вставки в %s: %w", c.name, err)
	}
	return decode[T](r)
}

// patch сливает поля с записью id или возвращает ErrNotFound.
func (c collection[T]) patch(ctx context.Context, id string, fields store.Record) (*T, error) {
	r, ok, err := c.store.Update(ctx, c.name, id, fields)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления %s/%s: %w", c.name, id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return decode[T](r)
}

// replace перезаписывает все изменяемые поля записи значениями модели.
func (c collection[T]) replace(ctx context.Context, id string, v *T) (*T, error) {
	fields, err := encode(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации %s: %w", c.name, err)
	}
	delete(fields, store.FieldUpdatedAt)
	return c.patch(ctx, id, fields)
}

// remove удаляет запись id или возвращает ErrNotFound.
func (c collection[T]) remove(ctx context.Context, id string) error {
	ok, err := c.store.Remove(ctx, c.name, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления %s/%s: %w", c.name, id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// decode преобразует запись в модель.
func decode[T any](r store.Record) (*T, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// encode преобразует модель в запись.
func encode(v any) (store.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r store.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// where собирает конъюнкцию условий равенства для непустых значений.
func where(fields map[string]string) store.Predicate {
	preds := make([]store.Predicate, 0, len(fields))
	for field, value := range fields {
		if value != "" {
			preds = append(preds, store.Eq(field, value))
		}
	}
	return store.And(preds...)
}
