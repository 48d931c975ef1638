package infrastructure

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Francouer/proto-guard/internal/domain"
)

type FileRepositoryImpl struct {
	logger domain.Logger
}

// NewFileRepository creates a new file repository
func NewFileRepository(logger domain.Logger) domain.FileRepository {
	return &FileRepositoryImpl{
		logger: logger,
	}
}

func (f *FileRepositoryImpl) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *FileRepositoryImpl) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (f *FileRepositoryImpl) CreateDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

func (f *FileRepositoryImpl) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *FileRepositoryImpl) ListFiles(dirPath string, pattern string) ([]domain.ProtoFile, error) {
	var files []domain.ProtoFile

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		// Check if file matches pattern
		if pattern != "" {
			matched, err := filepath.Match(pattern, info.Name())
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}

		// Without a pattern, only proto files are of interest
		if pattern == "" && !strings.HasSuffix(info.Name(), ".proto") {
			return nil
		}

		file := domain.ProtoFile{
			Name:         info.Name(),
			Path:         path,
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		}

		files = append(files, file)
		return nil
	})

	return files, err
}
