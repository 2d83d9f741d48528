package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// PhotoStorage отвечает за файловое хранилище изображений заданий.
type PhotoStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save проверяет, что содержимое является изображением, сохраняет файл
// и возвращает относительный путь, определённый MIME-тип и размер.
// Тип определяется по содержимому, расширение имени не учитывается.
func (s *PhotoStorage) Save(ctx context.Context, ownerID uuid.UUID, originalName string, r io.Reader) (string, string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", "", 0, err
	}

	buffered := bufio.NewReader(r)
	kind, err := sniffImage(buffered)
	if err != nil {
		return "", "", 0, err
	}

	fileName := fmt.Sprintf("%s_%d.%s", ownerID.String(), time.Now().UnixNano(), kind.Extension)

	ownerDir := filepath.Join(s.rootPath, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: buffered, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", "", 0, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return "", "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	relative := filepath.Join(ownerID.String(), fileName)
	return relative, kind.MIME.Value, written, nil
}

// Delete удаляет файл из хранилища.
func (s *PhotoStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	relativePath = filepath.Clean(relativePath)
	if strings.HasPrefix(relativePath, "..") {
		return fmt.Errorf("storage: недопустимый путь %q", relativePath)
	}

	target := filepath.Join(s.rootPath, relativePath)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sniffImage читает заголовок файла и определяет тип по magic-байтам.
func sniffImage(r *bufio.Reader) (types.Type, error) {
	head, err := r.Peek(261)
	if err != nil && err != io.EOF {
		return types.Unknown, fmt.Errorf("storage: не удалось прочитать заголовок файла: %w", err)
	}

	kind, err := filetype.Match(head)
	if err != nil {
		return types.Unknown, fmt.Errorf("storage: не удалось определить тип файла: %w", err)
	}
	if !filetype.IsImage(head) {
		return types.Unknown, fmt.Errorf("storage: допускаются только изображения")
	}
	return kind, nil
}
