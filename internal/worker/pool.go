package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tco-prep-backend/internal/models"
	"tco-prep-backend/internal/repository"
	"tco-prep-backend/internal/services"
	"tco-prep-backend/internal/store"
)

type Pool struct {
	redis        *redis.Client
	tutor        *services.TutorService
	youtube      *services.YouTubeService
	fileExtract  *services.FileExtractService
	jobRepo      *repository.JobRepo
	questionRepo *repository.QuestionRepo
	noteRepo     *repository.NoteRepo
	videoRepo    *repository.VideoRepo
	syncer       *store.Syncer
	syncInterval time.Duration
	workerCount  int
	stopChan     chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	tutor *services.TutorService,
	youtube *services.YouTubeService,
	fileExtract *services.FileExtractService,
	jobRepo *repository.JobRepo,
	questionRepo *repository.QuestionRepo,
	noteRepo *repository.NoteRepo,
	videoRepo *repository.VideoRepo,
	syncer *store.Syncer,
	syncInterval time.Duration,
	workerCount int,
) *Pool {
	return &Pool{
		redis:        redisClient,
		tutor:        tutor,
		youtube:      youtube,
		fileExtract:  fileExtract,
		jobRepo:      jobRepo,
		questionRepo: questionRepo,
		noteRepo:     noteRepo,
		videoRepo:    videoRepo,
		syncer:       syncer,
		syncInterval: syncInterval,
		workerCount:  workerCount,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		"queue:video-import",
		"queue:explanation-generation",
		"queue:note-import",
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}
	go p.syncLoop()

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Enqueue pushes a job onto its Redis queue for the worker fleet.
func (p *Pool) Enqueue(ctx context.Context, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.redis.LPush(ctx, jobQueueName(job.Type), string(jobBytes)).Err()
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		// Parse job
		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		processErr := p.process(ctx, &job)

		if processErr != nil {
			p.handleFailure(ctx, &job, processErr)
		} else {
			p.handleSuccess(ctx, &job)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// process dispatches one job to its handler. The tutor can be absent when
// no Gemini key is configured, so tutor-backed jobs fail cleanly instead of
// dereferencing a nil service.
func (p *Pool) process(ctx context.Context, job *models.Job) error {
	switch job.Type {
	case "video-import":
		return p.processVideoImport(ctx, job)
	case "explanation-generation":
		if p.tutor == nil {
			return fmt.Errorf("tutor service is not configured")
		}
		return p.tutor.GenerateExplanation(ctx, job)
	case "note-import":
		return p.processNoteImport(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// publishUpdate sends a WebSocket update via Redis pub/sub.
func (p *Pool) publishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	p.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// syncLoop periodically drains the offline write queue and notifies users
// whose pending writes were replayed.
func (p *Pool) syncLoop() {
	ticker := time.NewTicker(p.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			ctx := context.Background()
			report, err := p.syncer.Sync(ctx)
			if err != nil {
				log.Printf("background sync failed: %v", err)
				continue
			}
			if report.Drained == 0 && report.Requeued == 0 && report.Dropped == 0 {
				continue
			}
			log.Printf("background sync: drained=%d requeued=%d dropped=%d",
				report.Drained, report.Requeued, report.Dropped)

			for userIDStr, stats := range report.PerUser {
				userID, perr := uuid.Parse(userIDStr)
				if perr != nil {
					continue
				}
				p.publishUpdate(ctx, userID, models.WSMessage{
					Type: "synced",
					Payload: models.SyncedEvent{
						Drained:  stats.Drained,
						Requeued: stats.Requeued,
						Dropped:  stats.Dropped,
					},
				})
			}
		}
	}
}

// processVideoImport fills in metadata and transcript for a study video.
// Caption fetch falls back to downloading the audio track and transcribing
// it with Gemini.
func (p *Pool) processVideoImport(ctx context.Context, job *models.Job) error {
	video, err := p.videoRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get video: %w", err)
	}

	title, channel, thumbnail, _, durationSec, metaErr := p.youtube.GetVideoMetadata(video.YouTubeID)
	if metaErr == nil {
		if title != "" {
			video.Title = title
		}
		video.ChannelName = channel
		video.ThumbnailURL = thumbnail
		video.DurationSeconds = durationSec
		if err := p.videoRepo.UpdateMetadata(ctx, video); err != nil {
			return fmt.Errorf("failed to save video metadata: %w", err)
		}
	} else {
		log.Printf("metadata fetch failed for video %s: %v", video.YouTubeID, metaErr)
	}

	transcript, err := p.youtube.GetTranscript(video.YouTubeID)
	if err != nil {
		log.Printf("Transcript extraction failed for %s: %v", video.YouTubeID, err)

		audioBytes, mimeType, audioErr := p.youtube.DownloadAudio("https://www.youtube.com/watch?v=" + video.YouTubeID)
		if audioErr != nil {
			p.videoRepo.UpdateStatus(ctx, video.ID, "failed")
			return fmt.Errorf("transcript extraction failed for video %s: %v; audio fallback download failed: %w", video.YouTubeID, err, audioErr)
		}

		if p.tutor == nil {
			p.videoRepo.UpdateStatus(ctx, video.ID, "failed")
			return fmt.Errorf("transcript extraction failed for video %s: %v; no tutor service for STT fallback", video.YouTubeID, err)
		}

		transcribed, transcribeErr := p.tutor.TranscribeAudio(ctx, audioBytes, mimeType)
		if transcribeErr != nil {
			p.videoRepo.UpdateStatus(ctx, video.ID, "failed")
			return fmt.Errorf("transcript extraction failed for video %s: %v; STT fallback transcription failed: %w", video.YouTubeID, err, transcribeErr)
		}

		transcript = transcribed
	}

	if err := p.videoRepo.UpdateTranscript(ctx, video.ID, transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	log.Printf("Imported transcript for video %s (%d chars)", video.YouTubeID, len(transcript))
	return nil
}

// processNoteImport extracts text from an uploaded study guide and splits
// it into notes, each seeded with fresh SRS state. Config carries the file
// path plus the module and tags to attach.
func (p *Pool) processNoteImport(ctx context.Context, job *models.Job) error {
	var config struct {
		FilePath string   `json:"file_path"`
		ModuleID *string  `json:"module_id"`
		Tags     []string `json:"tags"`
	}
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return fmt.Errorf("invalid note-import config: %w", err)
	}
	if config.FilePath == "" {
		return fmt.Errorf("note-import job has no file path")
	}

	text, err := p.fileExtract.ExtractTextFromPath(config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to extract text from %s: %w", config.FilePath, err)
	}

	chunks := services.SplitIntoNotes(text)
	if len(chunks) == 0 {
		return fmt.Errorf("no usable text found in %s", config.FilePath)
	}

	now := time.Now()
	created := 0
	for _, chunk := range chunks {
		note := &models.Note{
			ID:        uuid.New(),
			UserID:    job.UserID,
			Text:      chunk,
			Tags:      config.Tags,
			ModuleID:  config.ModuleID,
			SRSDue:    now,
			SRSEase:   2.5,
			UpdatedAt: now,
		}
		if err := p.noteRepo.Upsert(ctx, note); err != nil {
			return fmt.Errorf("failed to save imported note: %w", err)
		}
		created++
	}

	log.Printf("Imported %d notes from %s for user %s", created, config.FilePath, job.UserID)
	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.publishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: getResultType(job.Type),
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	if job.RetryCount < 3 {
		// Re-queue with backoff
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "pending")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		jobBytes, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), jobQueueName(job.Type), string(jobBytes))
		})
	} else {
		// Max retries reached
		log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
		p.jobRepo.UpdateStatus(ctx, job.ID, "failed")
		p.jobRepo.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		if job.Type == "video-import" {
			p.videoRepo.UpdateStatus(ctx, job.ReferenceID, "failed")
		}

		p.publishUpdate(ctx, job.UserID, models.WSMessage{
			Type: "error",
			Payload: models.ErrorEvent{
				JobID:        job.ID,
				ErrorCode:    "JOB_FAILED",
				ErrorMessage: errMsg,
			},
		})
	}
}

func jobQueueName(jobType string) string {
	return "queue:" + strings.TrimPrefix(jobType, "queue:")
}

func getResultType(jobType string) string {
	switch jobType {
	case "video-import":
		return "video"
	case "explanation-generation":
		return "explanation"
	case "note-import":
		return "note"
	default:
		return "job"
	}
}
