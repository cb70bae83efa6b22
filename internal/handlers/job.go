package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"fluidasr/internal/audioio"
	"fluidasr/internal/models"
	"fluidasr/internal/storage"
	"fluidasr/internal/worker"
)

// JobHandler serves the transcription job queue's HTTP API.
type JobHandler struct {
	repo    *storage.JobRepository
	worker  *worker.Worker
	dataDir string
}

// NewJobHandler creates a new JobHandler. Uploaded audio is decoded and
// staged under dataDir before a job is queued.
func NewJobHandler(repo *storage.JobRepository, w *worker.Worker, dataDir string) *JobHandler {
	return &JobHandler{repo: repo, worker: w, dataDir: dataDir}
}

// Submit accepts a multipart "audio" file and a "source_id" field, decodes
// the audio to 16kHz mono float32 via ffmpeg, and enqueues a transcribe job.
func (h *JobHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()

	sourceID := c.FormValue("source_id")
	if sourceID == "" {
		sourceID = "default"
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing audio file: " + err.Error()})
	}

	tmpPath, err := h.stageUpload(fileHeader)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer os.Remove(tmpPath)

	samples, err := audioio.DecodeToFloat32(tmpPath)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to decode audio: " + err.Error()})
	}

	audioPath := filepath.Join(h.dataDir, uuid.New().String()+".f32")
	if err := audioio.SaveFloat32(audioPath, samples); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	priority := models.JobPriorityNormal
	if p := c.FormValue("priority"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			priority = parsed
		}
	}

	job, err := h.worker.SubmitJob(ctx, models.JobTypeTranscribe, sourceID, audioPath, priority)
	if err != nil {
		os.Remove(audioPath)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, job)
}

// stageUpload copies an uploaded file to a temp path on disk so ffmpeg can
// read it by filename.
func (h *JobHandler) stageUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.dataDir, "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// List returns recent jobs, optionally filtered by status.
func (h *JobHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	status := c.QueryParam("status")

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	var jobs []models.ProcessingJob
	var err error
	if status != "" {
		jobs, err = h.repo.ListByStatus(ctx, status, limit)
	} else {
		jobs, err = h.repo.ListRecent(ctx, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, jobs)
}

// Get returns a single job by id.
func (h *JobHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	job, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	return c.JSON(http.StatusOK, job)
}

// Stats returns a count of jobs per status.
func (h *JobHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	counts, err := h.repo.CountByStatus(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, counts)
}

// Delete removes a job and its staged audio.
func (h *JobHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	job, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job.AudioPath != "" {
		os.Remove(job.AudioPath)
	}

	return c.NoContent(http.StatusNoContent)
}
