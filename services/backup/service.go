package backup

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// BackupType indicates how the backup was created
type BackupType string

const (
	BackupTypeManual     BackupType = "manual"
	BackupTypeScheduled  BackupType = "scheduled"
	BackupTypePreRestore BackupType = "pre_restore"
)

var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrInvalidFilename = errors.New("invalid backup filename")
)

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	Filename  string     `json:"filename"`
	Size      int64      `json:"size"`
	CreatedAt time.Time  `json:"createdAt"`
	Type      BackupType `json:"type"`
	Version   string     `json:"version,omitempty"`
}

// Manifest contains metadata about the backup contents
type Manifest struct {
	Version   string            `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	Type      BackupType        `json:"type"`
	Files     map[string]string `json:"files"` // filename -> sha256 checksum
}

// Service archives and restores the server state files. The filesystem is
// injected so tests run against an in-memory fs.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	dataDir  string
	backups  string
	maxCount int
}

// Files to back up (relative to dataDir)
var backupFiles = []string{
	"settings.json",
	"catalog.json",
	"progress.db",
}

// NewService creates a backup service rooted at the data directory.
// maxCount <= 0 disables pruning.
func NewService(fs afero.Fs, dataDir string, maxCount int) (*Service, error) {
	backups := filepath.Join(dataDir, "backups")
	if err := fs.MkdirAll(backups, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	return &Service{
		fs:       fs,
		dataDir:  dataDir,
		backups:  backups,
		maxCount: maxCount,
	}, nil
}

// CreateBackup archives the state files into a new zip and prunes old
// backups past the configured count.
func (s *Service) CreateBackup(backupType BackupType) (*BackupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(backupType)
}

func (s *Service) createLocked(backupType BackupType) (*BackupInfo, error) {
	timestamp := time.Now().UTC().Format("20060102-150405")
	filename := fmt.Sprintf("cineplay_backup_%s.zip", timestamp)
	backupPath := filepath.Join(s.backups, filename)

	// Same-second backups get a numeric suffix instead of clobbering.
	for n := 2; ; n++ {
		if _, err := s.fs.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		filename = fmt.Sprintf("cineplay_backup_%s-%d.zip", timestamp, n)
		backupPath = filepath.Join(s.backups, filename)
	}

	tmpPath := backupPath + ".tmp"
	zipFile, err := s.fs.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}

	zipWriter := zip.NewWriter(zipFile)

	manifest := Manifest{
		Version:   "1.0",
		CreatedAt: time.Now().UTC(),
		Type:      backupType,
		Files:     make(map[string]string),
	}

	for _, name := range backupFiles {
		srcPath := filepath.Join(s.dataDir, name)

		stat, err := s.fs.Stat(srcPath)
		if os.IsNotExist(err) {
			log.Printf("[backup] Skipping %s (not found)", name)
			continue
		}
		if err != nil {
			log.Printf("[backup] Error checking %s: %v", name, err)
			continue
		}
		if stat.IsDir() {
			continue
		}

		checksum, err := s.addFileToZip(zipWriter, srcPath, name)
		if err != nil {
			log.Printf("[backup] Warning: failed to backup %s: %v", name, err)
			continue
		}
		manifest.Files[name] = checksum
		log.Printf("[backup] Added %s", name)
	}

	if err := writeManifest(zipWriter, manifest); err != nil {
		zipWriter.Close()
		zipFile.Close()
		s.fs.Remove(tmpPath)
		return nil, err
	}

	if err := zipWriter.Close(); err != nil {
		zipFile.Close()
		s.fs.Remove(tmpPath)
		return nil, fmt.Errorf("close zip writer: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return nil, fmt.Errorf("close zip file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, backupPath); err != nil {
		s.fs.Remove(tmpPath)
		return nil, fmt.Errorf("finalize backup: %w", err)
	}

	stat, err := s.fs.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	info := &BackupInfo{
		Filename:  filename,
		Size:      stat.Size(),
		CreatedAt: manifest.CreatedAt,
		Type:      backupType,
		Version:   manifest.Version,
	}

	log.Printf("[backup] Created backup: %s (%d bytes, %d files)", filename, info.Size, len(manifest.Files))

	s.pruneLocked()
	return info, nil
}

func writeManifest(zipWriter *zip.Writer, manifest Manifest) error {
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	writer, err := zipWriter.Create("manifest.json")
	if err != nil {
		return fmt.Errorf("create manifest in zip: %w", err)
	}
	if _, err := writer.Write(manifestJSON); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *Service) addFileToZip(zipWriter *zip.Writer, srcPath, destName string) (string, error) {
	file, err := s.fs.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	teeReader := io.TeeReader(file, hasher)

	writer, err := zipWriter.Create(destName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(writer, teeReader); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ListBackups returns all available backups sorted by creation time, newest
// first.
func (s *Service) ListBackups() ([]BackupInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos, err := afero.ReadDir(s.fs, s.backups)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, info := range infos {
		if info.IsDir() {
			continue
		}

		name := info.Name()
		if !validBackupName(name) {
			continue
		}

		backup := BackupInfo{
			Filename:  name,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			Type:      BackupTypeManual,
		}

		manifest, err := s.readManifest(filepath.Join(s.backups, name))
		if err == nil {
			backup.CreatedAt = manifest.CreatedAt
			backup.Type = manifest.Type
			backup.Version = manifest.Version
		}

		backups = append(backups, backup)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// GetBackupReader opens a backup file for download.
func (s *Service) GetBackupReader(filename string) (io.ReadCloser, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !validBackupName(filename) {
		return nil, 0, ErrInvalidFilename
	}

	path := filepath.Join(s.backups, filename)
	stat, err := s.fs.Stat(path)
	if os.IsNotExist(err) {
		return nil, 0, ErrBackupNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("stat backup: %w", err)
	}

	file, err := s.fs.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open backup: %w", err)
	}
	return file, stat.Size(), nil
}

// DeleteBackup removes a backup file.
func (s *Service) DeleteBackup(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validBackupName(filename) {
		return ErrInvalidFilename
	}

	path := filepath.Join(s.backups, filename)
	if _, err := s.fs.Stat(path); os.IsNotExist(err) {
		return ErrBackupNotFound
	}

	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}

	log.Printf("[backup] Deleted backup: %s", filename)
	return nil
}

// RestoreBackup extracts a backup's state files back into the data
// directory. A pre-restore backup is taken first so a bad restore can be
// undone.
func (s *Service) RestoreBackup(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !validBackupName(filename) {
		return ErrInvalidFilename
	}

	path := filepath.Join(s.backups, filename)
	stat, err := s.fs.Stat(path)
	if os.IsNotExist(err) {
		return ErrBackupNotFound
	}
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}

	manifest, err := s.readManifest(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	if _, err := s.createLocked(BackupTypePreRestore); err != nil {
		return fmt.Errorf("pre-restore backup: %w", err)
	}

	file, err := s.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer file.Close()

	reader, err := zip.NewReader(file, stat.Size())
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	for _, entry := range reader.File {
		if entry.Name == "manifest.json" {
			continue
		}
		if _, ok := manifest.Files[entry.Name]; !ok {
			log.Printf("[backup] Skipping %s (not in manifest)", entry.Name)
			continue
		}
		if err := s.restoreFile(entry); err != nil {
			return fmt.Errorf("restore %s: %w", entry.Name, err)
		}
		log.Printf("[backup] Restored %s", entry.Name)
	}

	log.Printf("[backup] Restore from %s complete", filename)
	return nil
}

func (s *Service) restoreFile(entry *zip.File) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	destPath := filepath.Join(s.dataDir, entry.Name)
	tmpPath := destPath + ".tmp"

	dest, err := s.fs.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, rc); err != nil {
		dest.Close()
		s.fs.Remove(tmpPath)
		return err
	}
	if err := dest.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}
	return s.fs.Rename(tmpPath, destPath)
}

func (s *Service) readManifest(zipPath string) (*Manifest, error) {
	stat, err := s.fs.Stat(zipPath)
	if err != nil {
		return nil, err
	}

	file, err := s.fs.Open(zipPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := zip.NewReader(file, stat.Size())
	if err != nil {
		return nil, err
	}

	for _, entry := range reader.File {
		if entry.Name == "manifest.json" {
			rc, err := entry.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()

			var manifest Manifest
			if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
				return nil, err
			}
			return &manifest, nil
		}
	}

	return nil, errors.New("manifest not found in backup")
}

// pruneLocked removes the oldest backups past maxCount. Pre-restore backups
// are never pruned automatically.
func (s *Service) pruneLocked() {
	if s.maxCount <= 0 {
		return
	}

	infos, err := afero.ReadDir(s.fs, s.backups)
	if err != nil {
		log.Printf("[backup] Prune: read directory: %v", err)
		return
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	var candidates []candidate
	for _, info := range infos {
		if info.IsDir() || !validBackupName(info.Name()) {
			continue
		}
		manifest, err := s.readManifest(filepath.Join(s.backups, info.Name()))
		if err == nil && manifest.Type == BackupTypePreRestore {
			continue
		}
		candidates = append(candidates, candidate{info.Name(), info.ModTime()})
	}

	if len(candidates) <= s.maxCount {
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	for _, c := range candidates[:len(candidates)-s.maxCount] {
		if err := s.fs.Remove(filepath.Join(s.backups, c.name)); err != nil {
			log.Printf("[backup] Prune: remove %s: %v", c.name, err)
			continue
		}
		log.Printf("[backup] Pruned old backup: %s", c.name)
	}
}

// validBackupName rejects traversal attempts and foreign files.
func validBackupName(filename string) bool {
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") || strings.HasPrefix(filename, ".") {
		return false
	}
	return strings.HasPrefix(filename, "cineplay_backup_") && strings.HasSuffix(filename, ".zip")
}
