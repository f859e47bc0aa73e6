package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ============================================================
// File Storage
// ============================================================

var photoTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// FileStorage хранит фотографии пожертвований на диске.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) DonationDir(donationID string) string {
	return filepath.Join(s.root, "donations", donationID)
}

func (s *FileStorage) PhotoPath(donationID, name string) string {
	return filepath.Join(s.DonationDir(donationID), name)
}

func (s *FileStorage) EnsureDir(donationID string) error {
	if err := os.MkdirAll(s.DonationDir(donationID), 0o755); err != nil {
		return fmt.Errorf("mkdir donation dir: %w", err)
	}
	return nil
}

// SavePhoto сохраняет фото как photo<ext> и возвращает имя файла.
func (s *FileStorage) SavePhoto(donationID, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := photoTypes[ext]; !ok {
		return "", invalid("unsupported photo type %q", ext)
	}
	if len(data) == 0 {
		return "", invalid("empty photo")
	}
	if err := s.EnsureDir(donationID); err != nil {
		return "", err
	}

	name := "photo" + ext
	if err := os.WriteFile(s.PhotoPath(donationID, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return name, nil
}

// ContentType returns the MIME type for a stored photo name.
func ContentType(name string) string {
	if ct, ok := photoTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
