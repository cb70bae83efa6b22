package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fluidasr/internal/asr"
	"fluidasr/internal/audioio"
	"fluidasr/internal/handlers"
	"fluidasr/internal/models"
	"fluidasr/internal/storage"
	"fluidasr/internal/worker"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("FLUIDASR_DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal(err)
		}
		dbPath = filepath.Join(home, ".fluidasr", "fluidasr.db")
	}

	dataDir := os.Getenv("FLUIDASR_DATA_DIR")
	if dataDir == "" {
		dataDir = filepath.Dir(dbPath)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("database initialized at %s", dbPath)

	jobRepo := storage.NewJobRepository(db)

	manager, err := newASRManager()
	if err != nil {
		log.Fatalf("failed to initialize ASR manager: %v", err)
	}
	defer manager.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.NewWorker(jobRepo)
	w.RegisterHandler(models.JobTypeTranscribe, transcribeHandler(manager))
	w.Start(ctx)
	defer w.Stop()

	jobHandler := handlers.NewJobHandler(jobRepo, w, dataDir)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.POST("/jobs", jobHandler.Submit)
	api.GET("/jobs", jobHandler.List)
	api.GET("/jobs/stats", jobHandler.Stats)
	api.GET("/jobs/:id", jobHandler.Get)
	api.DELETE("/jobs/:id", jobHandler.Delete)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
		e.Close()
	}()

	log.Printf("starting fluidasr on port %s", port)
	if err := e.Start(fmt.Sprintf(":%s", port)); err != nil {
		log.Println("server stopped")
	}
}

// newASRManager wires the ONNX model adapter and vocabulary named by
// environment variables into a ready-to-use asr.Manager.
func newASRManager() (*asr.Manager, error) {
	modelDir := os.Getenv("FLUIDASR_MODEL_DIR")
	if modelDir == "" {
		modelDir = "models/fluidaudio-tdt"
	}

	adapter, err := asr.NewModelAdapter(asr.ModelPaths{
		Mel:     filepath.Join(modelDir, "mel.onnx"),
		Encoder: filepath.Join(modelDir, "encoder.onnx"),
		Decoder: filepath.Join(modelDir, "decoder.onnx"),
		Joint:   filepath.Join(modelDir, "joint.onnx"),
	}, asr.DefaultTDTConfig().Durations, os.Getenv("FLUIDASR_ONNXRUNTIME_LIB"))
	if err != nil {
		return nil, fmt.Errorf("load model adapter: %w", err)
	}

	vocab, err := asr.LoadVocab(filepath.Join(modelDir, "vocab.json"))
	if err != nil {
		adapter.Close()
		return nil, fmt.Errorf("load vocab: %w", err)
	}

	manager := asr.NewManager()
	if err := manager.Initialize(adapter, vocab, asr.DefaultTDTConfig(), nil); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("initialize ASR manager: %w", err)
	}
	return manager, nil
}

// transcribeHandler adapts asr.Manager.TranscribeSource into a worker.JobHandler.
func transcribeHandler(manager *asr.Manager) worker.JobHandler {
	return func(ctx context.Context, job *models.ProcessingJob) (string, error) {
		samples, err := audioio.LoadFloat32(job.AudioPath)
		if err != nil {
			return "", fmt.Errorf("load staged audio: %w", err)
		}

		result, err := manager.TranscribeSource(samples, asr.Source(job.SourceID))
		if err != nil {
			return "", err
		}
		return result.Text, nil
	}
}
