// memory.go — in-memory бэкенд хранилища записей.
// Используется в тестах сервисов и обработчиков. Семантика совпадает
// с FileStore: записи копируются на границе через JSON.
package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore — хранилище записей в памяти процесса.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Record
	stamper     stamper
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Record),
		stamper:     newStamper(opts),
	}
}

// ReadAll возвращает копии всех записей коллекции.
func (s *MemoryStore) ReadAll(_ context.Context, collection string) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAll(s.collections[collection])
}

// FindMany возвращает записи, удовлетворяющие предикату.
func (s *MemoryStore) FindMany(ctx context.Context, collection string, pred Predicate) ([]Record, error) {
	records, err := s.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return filter(records, pred), nil
}

// FindOne возвращает первую запись, удовлетворяющую предикату.
func (s *MemoryStore) FindOne(ctx context.Context, collection string, pred Predicate) (Record, bool, error) {
	records, err := s.FindMany(ctx, collection, pred)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

// Insert добавляет запись в конец коллекции.
func (s *MemoryStore) Insert(_ context.Context, collection string, fields Record) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	rec, err := s.stamper.prepareInsert(fields)
	if err != nil {
		return nil, err
	}
	stored, err := cloneRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: сериализация %s: %w", ErrIO, collection, err)
	}

	s.mu.Lock()
	s.collections[collection] = append(s.collections[collection], stored)
	s.mu.Unlock()

	return cloneRecord(stored)
}

// Update сливает patch с записью id.
func (s *MemoryStore) Update(_ context.Context, collection, id string, patch Record) (Record, bool, error) {
	if err := validateCollection(collection); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	idx := indexOf(records, id)
	if idx < 0 {
		return nil, false, nil
	}

	merged, err := cloneRecord(s.stamper.applyPatch(records[idx], patch))
	if err != nil {
		return nil, false, fmt.Errorf("%w: сериализация %s: %w", ErrIO, collection, err)
	}
	records[idx] = merged

	out, err := cloneRecord(merged)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Remove удаляет запись id.
func (s *MemoryStore) Remove(_ context.Context, collection, id string) (bool, error) {
	if err := validateCollection(collection); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.collections[collection]
	idx := indexOf(records, id)
	if idx < 0 {
		return false, nil
	}
	s.collections[collection] = append(records[:idx], records[idx+1:]...)
	return true, nil
}

// cloneAll копирует срез записей.
func cloneAll(records []Record) ([]Record, error) {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		c, err := cloneRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
