// Пакет store — хранилище записей: именованные коллекции JSON-объектов
// с присвоением id, отметками времени и CRUD-операциями.
// Хранилище ничего не знает о сессиях, ролях и предметной области.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Поля записи, которыми управляет хранилище.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

var (
	// ErrCorrupt — содержимое коллекции не разбирается как массив записей.
	// Фатальная ошибка: коллекция не трактуется как пустая.
	ErrCorrupt = errors.New("коллекция повреждена")
	// ErrIO — ошибка ввода-вывода хранилища.
	ErrIO = errors.New("ошибка ввода-вывода хранилища")
	// ErrInvalidCollection — недопустимое имя коллекции.
	ErrInvalidCollection = errors.New("недопустимое имя коллекции")
)

// Record — запись коллекции: JSON-объект с обязательными полями id и createdAt.
type Record map[string]any

// ID возвращает идентификатор записи.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String возвращает строковое значение поля или пустую строку.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Predicate — условие отбора записей.
type Predicate func(Record) bool

// All — предикат, которому удовлетворяет любая запись.
func All() Predicate {
	return func(Record) bool { return true }
}

// Eq — поле равно значению. Строки сравниваются как есть, числа —
// после приведения к float64 (так их возвращает encoding/json).
func Eq(field string, value any) Predicate {
	want := normalize(value)
	return func(r Record) bool {
		v, ok := r[field]
		return ok && normalize(v) == want
	}
}

// EqFold — строковое поле равно значению без учёта регистра.
func EqFold(field, value string) Predicate {
	return func(r Record) bool {
		return strings.EqualFold(r.String(field), value)
	}
}

// And — конъюнкция предикатов.
func And(preds ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// normalize приводит числовые значения к float64 для сравнения.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	default:
		return v
	}
}

// Store — хранилище записей. Все реализации обязаны соблюдать:
//   - отсутствующая коллекция читается как пустая;
//   - повреждённая коллекция возвращает ошибку, обёрнутую в ErrCorrupt;
//   - отсутствие записи — (nil, false, nil), а не ошибка;
//   - возвращаемые записи — копии, их изменение не влияет на хранилище.
type Store interface {
	ReadAll(ctx context.Context, collection string) ([]Record, error)
	FindMany(ctx context.Context, collection string, pred Predicate) ([]Record, error)
	FindOne(ctx context.Context, collection string, pred Predicate) (Record, bool, error)
	Insert(ctx context.Context, collection string, fields Record) (Record, error)
	Update(ctx context.Context, collection, id string, patch Record) (Record, bool, error)
	Remove(ctx context.Context, collection, id string) (bool, error)
}

// Option — параметр конструктора хранилища.
type Option func(*stamper)

// WithClock подменяет источник времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(s *stamper) { s.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *stamper) { s.newID = newID }
}

// stamper присваивает id и отметки времени. Общий для всех бэкендов.
type stamper struct {
	now   func() time.Time
	newID func() (string, error)
}

func newStamper(opts []Option) stamper {
	s := stamper{
		now: time.Now,
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// timestamp — текущее время в формате RFC3339Nano UTC.
func (s stamper) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// prepareInsert формирует новую запись: клиентские id/createdAt/updatedAt
// отбрасываются, присваиваются id и createdAt.
func (s stamper) prepareInsert(fields Record) (Record, error) {
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: генерация id: %w", ErrIO, err)
	}

	rec := make(Record, len(fields)+2)
	for k, v := range fields {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		rec[k] = v
	}
	rec[FieldID] = id
	rec[FieldCreatedAt] = s.timestamp()
	return rec, nil
}

// applyPatch выполняет поверхностное слияние patch поверх rec.
// Ключи id и createdAt игнорируются, updatedAt выставляется заново.
func (s stamper) applyPatch(rec, patch Record) Record {
	merged := make(Record, len(rec)+len(patch)+1)
	for k, v := range rec {
		merged[k] = v
	}
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		merged[k] = v
	}
	merged[FieldUpdatedAt] = s.timestamp()
	return merged
}

// collectionNameRe — имена коллекций, допустимые как имена файлов.
var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// validateCollection проверяет имя коллекции.
func validateCollection(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// collectionLocks — RWMutex на каждую коллекцию. Писатели одной коллекции
// сериализуются, чтение разных коллекций не блокирует друг друга.
type collectionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newCollectionLocks() *collectionLocks {
	return &collectionLocks{locks: make(map[string]*sync.RWMutex)}
}

// get возвращает мьютекс коллекции, создавая его при необходимости.
func (c *collectionLocks) get(collection string) *sync.RWMutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[collection]
	if !ok {
		l = &sync.RWMutex{}
		c.locks[collection] = l
	}
	return l
}

// cloneRecord возвращает глубокую копию записи через JSON,
// так что типы значений совпадают с прочитанными из файла.
func cloneRecord(r Record) (Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// filter отбирает записи по предикату с сохранением порядка.
func filter(records []Record, pred Predicate) []Record {
	if pred == nil {
		pred = All()
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// indexOf возвращает позицию записи с указанным id или -1.
func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
