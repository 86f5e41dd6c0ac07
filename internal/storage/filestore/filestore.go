// Пакет filestore — хранение загруженных PDF-документов на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету,
// проверку сигнатуры PDF и ограничение размера, чтение и удаление.
package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// pdfMagic — сигнатура начала PDF-файла.
var pdfMagic = []byte("%PDF-")

var (
	// ErrNotPDF — содержимое не является PDF.
	ErrNotPDF = errors.New("файл не является PDF")
	// ErrTooLarge — файл больше допустимого размера.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrNotFound — файл отсутствует на диске.
	ErrNotFound = errors.New("файл не найден")
)

// FileStore — управление файлами документов в директории загрузок.
type FileStore struct {
	// dir — директория загрузок (SIBO_UPLOAD_DIR)
	dir string
	// maxSize — максимальный размер файла в байтах
	maxSize int64
	now     func() time.Time
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// FileName — имя файла в директории загрузок
	FileName string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// Owner — данные, из которых строится имя файла документа.
type Owner struct {
	UserID        string
	ApplicationID string
	DocumentType  string
}

// New создаёт FileStore. Создаёт директорию, если она не существует.
func New(dir string, maxSize int64) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", dir, err)
	}
	return &FileStore{dir: dir, maxSize: maxSize, now: time.Now}, nil
}

// MaxSize возвращает ограничение размера файла.
func (fs *FileStore) MaxSize() int64 {
	return fs.maxSize
}

// Save записывает PDF из reader на диск.
// Формат имени: {userId}_{applicationId}_{type}_{timestamp}.pdf
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Save(reader io.Reader, owner Owner) (*SaveResult, error) {
	// Сигнатура проверяется до создания файла
	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ошибка чтения данных: %w", err)
	}
	if !bytes.Equal(head[:n], pdfMagic) {
		return nil, ErrNotPDF
	}

	name := fs.storageName(owner)
	fullPath := filepath.Join(fs.dir, name)

	f, err := os.CreateTemp(fs.dir, name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	// Streaming запись с одновременным подсчётом SHA-256.
	// Читаем на байт больше лимита, чтобы обнаружить превышение.
	hasher := sha256.New()
	body := io.MultiReader(bytes.NewReader(head), reader)
	limited := io.LimitReader(body, fs.maxSize+1)

	size, err := io.Copy(io.MultiWriter(f, hasher), limited)
	if err == nil && size > fs.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		FileName: name,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(fileName string) (*os.File, error) {
	fullPath, err := fs.resolve(fileName)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileName)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", fileName, err)
	}
	return f, nil
}

// Delete удаляет файл. Возвращает nil, если файла уже нет.
func (fs *FileStore) Delete(fileName string) error {
	fullPath, err := fs.resolve(fileName)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", fileName, err)
	}
	return nil
}

// Dir возвращает путь к директории загрузок.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// resolve возвращает абсолютный путь файла, не выходящий за пределы директории.
func (fs *FileStore) resolve(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return "", fmt.Errorf("%w: недопустимое имя %q", ErrNotFound, fileName)
	}
	return filepath.Join(fs.dir, fileName), nil
}

// storageName генерирует имя файла документа.
// Пример: 0190c5d2-..._0190c5d3-..._transcript_1767225600000.pdf
func (fs *FileStore) storageName(o Owner) string {
	ts := strconv.FormatInt(fs.now().UnixMilli(), 10)
	return fmt.Sprintf("%s_%s_%s_%s.pdf", sanitize(o.UserID), sanitize(o.ApplicationID), sanitize(o.DocumentType), ts)
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только латинские буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			result.WriteRune(r)
		case r == ' ':
			result.WriteRune('_')
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
