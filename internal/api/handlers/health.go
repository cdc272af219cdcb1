package handlers

import (
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gatherguru/server/internal/upload"
)

// HealthHandler reports process liveness plus a snapshot of memory and
// upload storage locations.
type HealthHandler struct {
	Env        string
	UploadsDir string
	startedAt  time.Time
}

func NewHealthHandler(env, uploadsDir string) *HealthHandler {
	return &HealthHandler{Env: env, UploadsDir: uploadsDir, startedAt: time.Now()}
}

type memorySnapshot struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	HeapInuse  uint64 `json:"heapInuse"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

type storagePaths struct {
	UploadsDir       string `json:"uploadsDir"`
	EventBannersDir  string `json:"eventBannersDir"`
	ProfileImagesDir string `json:"profileImagesDir"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.startedAt).Seconds(),
		"environment": h.Env,
		"memory": memorySnapshot{
			Alloc:      mem.Alloc,
			TotalAlloc: mem.TotalAlloc,
			Sys:        mem.Sys,
			HeapInuse:  mem.HeapInuse,
			NumGC:      mem.NumGC,
			Goroutines: runtime.NumGoroutine(),
		},
		"storage": storagePaths{
			UploadsDir:       h.UploadsDir,
			EventBannersDir:  filepath.Join(h.UploadsDir, upload.CategoryEventBanners),
			ProfileImagesDir: filepath.Join(h.UploadsDir, upload.CategoryProfileImages),
		},
	})
}

// Test is a quick connectivity check for frontend developers.
func (h *HealthHandler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "API endpoint is working!",
		"data": map[string]any{
			"test":        true,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": h.Env,
		},
	})
}
