// filestore.go — файловый бэкенд хранилища записей.
// Каждая коллекция — JSON-массив в файле <dataDir>/<collection>.json.
// Запись всегда атомарна: temp файл → fsync → rename.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore — хранилище записей на локальной файловой системе.
type FileStore struct {
	// dataDir — директория файлов коллекций (SIBO_DATA_DIR)
	dataDir string
	locks   *collectionLocks
	stamper stamper
}

// NewFileStore создаёт файловое хранилище. Директория создаётся,
// если не существует.
func NewFileStore(dataDir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: не удалось создать директорию данных %s: %w", ErrIO, dataDir, err)
	}

	return &FileStore{
		dataDir: dataDir,
		locks:   newCollectionLocks(),
		stamper: newStamper(opts),
	}, nil
}

// Init создаёт пустые файлы для перечисленных коллекций, если их нет.
// Существующие файлы не изменяются.
func (s *FileStore) Init(collections ...string) error {
	for _, c := range collections {
		if err := validateCollection(c); err != nil {
			return err
		}
		l := s.locks.get(c)
		l.Lock()
		_, err := os.Stat(s.path(c))
		if errors.Is(err, fs.ErrNotExist) {
			err = s.write(c, []Record{})
		} else if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrIO, c, err)
		}
		l.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadAll возвращает все записи коллекции в порядке хранения.
func (s *FileStore) ReadAll(_ context.Context, collection string) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	l := s.locks.get(collection)
	l.RLock()
	defer l.RUnlock()

	return s.read(collection)
}

// FindMany возвращает записи, удовлетворяющие предикату.
func (s *FileStore) FindMany(ctx context.Context, collection string, pred Predicate) ([]Record, error) {
	records, err := s.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return filter(records, pred), nil
}

// FindOne возвращает первую запись, удовлетворяющую предикату.
func (s *FileStore) FindOne(ctx context.Context, collection string, pred Predicate) (Record, bool, error) {
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
func (s *FileStore) Insert(_ context.Context, collection string, fields Record) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	l := s.locks.get(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.read(collection)
	if err != nil {
		return nil, err
	}

	rec, err := s.stamper.prepareInsert(fields)
	if err != nil {
		return nil, err
	}
	records = append(records, rec)

	if err := s.write(collection, records); err != nil {
		return nil, err
	}
	return cloneOrSelf(rec), nil
}

// Update сливает patch с записью id. Если записи нет — файл не переписывается.
func (s *FileStore) Update(_ context.Context, collection, id string, patch Record) (Record, bool, error) {
	if err := validateCollection(collection); err != nil {
		return nil, false, err
	}
	l := s.locks.get(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.read(collection)
	if err != nil {
		return nil, false, err
	}

	idx := indexOf(records, id)
	if idx < 0 {
		return nil, false, nil
	}
	records[idx] = s.stamper.applyPatch(records[idx], patch)

	if err := s.write(collection, records); err != nil {
		return nil, false, err
	}
	return cloneOrSelf(records[idx]), true, nil
}

// Remove удаляет запись id. Если записи нет — файл не переписывается.
func (s *FileStore) Remove(_ context.Context, collection, id string) (bool, error) {
	if err := validateCollection(collection); err != nil {
		return false, err
	}
	l := s.locks.get(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.read(collection)
	if err != nil {
		return false, err
	}

	idx := indexOf(records, id)
	if idx < 0 {
		return false, nil
	}
	records = append(records[:idx], records[idx+1:]...)

	if err := s.write(collection, records); err != nil {
		return false, err
	}
	return true, nil
}

// DataDir возвращает путь к директории данных.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// path возвращает путь к файлу коллекции.
func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dataDir, collection+".json")
}

// read читает коллекцию. Вызывается под блокировкой коллекции.
// Отсутствующий файл — пустая коллекция.
func (s *FileStore) read(collection string) ([]Record, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("%w: чтение %s: %w", ErrIO, collection, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, collection, err)
	}
	if records == nil {
		// Файл содержит null
		records = []Record{}
	}
	return records, nil
}

// write атомарно перезаписывает коллекцию. При любой ошибке
// прежний файл остаётся нетронутым.
func (s *FileStore) write(collection string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: сериализация %s: %w", ErrIO, collection, err)
	}

	path := s.path(collection)
	f, err := os.CreateTemp(s.dataDir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: ошибка создания временного файла: %w", ErrIO, err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка записи: %w", ErrIO, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка fsync: %w", ErrIO, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка закрытия файла: %w", ErrIO, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: ошибка атомарного переименования: %w", ErrIO, err)
	}

	return nil
}

// cloneOrSelf возвращает копию записи. Записи из JSON всегда
// клонируются успешно, поэтому ошибка клонирования не ожидается.
func cloneOrSelf(r Record) Record {
	c, err := cloneRecord(r)
	if err != nil {
		return r
	}
	return c
}
