package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"cineplay/services/backup"
)

// BackupHandler handles backup API endpoints
type BackupHandler struct {
	backupService *backup.Service
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(backupService *backup.Service) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
	}
}

// ListBackups returns all available backups
// GET /api/backups
func (h *BackupHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backupService.ListBackups()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Failed to list backups: " + err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"backups": backups,
	})
}

// CreateBackup creates a new manual backup
// POST /api/backups
func (h *BackupHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := h.backupService.CreateBackup(backup.BackupTypeManual)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Failed to create backup: " + err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"backup":  info,
	})
}

// DownloadBackup streams a backup file for download
// GET /api/backups/{filename}/download
func (h *BackupHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	reader, size, err := h.backupService.GetBackupReader(filename)
	if err != nil {
		writeBackupError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))

	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[backup] Error streaming backup %s: %v", filename, err)
	}
}

// RestoreBackup restores state files from a backup
// POST /api/backups/{filename}/restore
func (h *BackupHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	if err := h.backupService.RestoreBackup(filename); err != nil {
		writeBackupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// DeleteBackup removes a backup file
// DELETE /api/backups/{filename}
func (h *BackupHandler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	if err := h.backupService.DeleteBackup(filename); err != nil {
		writeBackupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

func writeBackupError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, backup.ErrBackupNotFound) {
		status = http.StatusNotFound
	} else if errors.Is(err, backup.ErrInvalidFilename) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}
