package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"miniprogram-ai-chat/internal/domain"
	"miniprogram-ai-chat/internal/domain/model"
	"miniprogram-ai-chat/internal/domain/ports/adapter"
	"miniprogram-ai-chat/internal/domain/ports/repository"
	"miniprogram-ai-chat/internal/infra/metrics"
	"miniprogram-ai-chat/internal/infra/worker"
)

// Compile-time check
var _ ChatJobUseCase = (*chatJobUC)(nil)

// uploadFailedNote is appended to the reply when an image was generated but
// could not be persisted to the object store.
const uploadFailedNote = "\n\n[generated image could not be saved]"

type ChatJobUseCase interface {
	// Submit validates the request, creates a processing job and schedules its
	// pipeline on the worker pool, returning the job ID immediately.
	Submit(ctx context.Context, req *model.ChatRequest) (string, error)

	// Poll returns the job snapshot. Reading a terminal state evicts the job,
	// so exactly one poll observes the outcome.
	Poll(ctx context.Context, id string) (*model.ChatJob, error)
}

type chatJobUC struct {
	store   repository.ChatJobStore
	ai      adapter.AIServiceAdapter
	storage adapter.ObjectStorage
	pool    *worker.Pool
	fetcher *http.Client
	log     *zerolog.Logger
}

func NewChatJobUseCase(
	store repository.ChatJobStore,
	ai adapter.AIServiceAdapter,
	storage adapter.ObjectStorage,
	pool *worker.Pool,
	logger *zerolog.Logger,
) *chatJobUC {
	return &chatJobUC{
		store:   store,
		ai:      ai,
		storage: storage,
		pool:    pool,
		fetcher: &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}
}

func (uc *chatJobUC) Submit(ctx context.Context, req *model.ChatRequest) (string, error) {
	if uc.ai == nil {
		return "", domain.ErrAIUnavailable
	}
	if req == nil || req.Empty() {
		return "", domain.ErrEmptyInput
	}

	id := uuid.NewString()
	if err := uc.store.Create(ctx, model.NewChatJob(id)); err != nil {
		return "", err
	}
	err := uc.pool.Submit(func(taskCtx context.Context) error {
		uc.process(taskCtx, id, req)
		return nil
	})
	if err != nil {
		// never leave an orphan processing record behind
		_ = uc.store.Delete(ctx, id)
		return "", fmt.Errorf("schedule job: %w", err)
	}
	uc.log.Info().Str("job_id", id).Str("model", req.Model).Msg("chat job submitted")
	return id, nil
}

func (uc *chatJobUC) Poll(ctx context.Context, id string) (*model.ChatJob, error) {
	return uc.store.Consume(ctx, id)
}

// process runs the whole pipeline for one job and writes exactly one terminal
// state. Nothing may escape: a silently crashed goroutine would leave the job
// stuck in processing forever.
func (uc *chatJobUC) process(ctx context.Context, id string, req *model.ChatRequest) {
	defer func() {
		if r := recover(); r != nil {
			uc.log.Error().Str("job_id", id).Interface("panic", r).Msg("chat job panicked")
			uc.writeFailure(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	start := time.Now()
	result, err := uc.run(ctx, req)
	latency := time.Since(start)

	status := model.ChatJobStatusSuccess
	if err != nil {
		status = model.ChatJobStatusFailed
		uc.log.Error().Err(err).Str("job_id", id).Msg("chat job failed")
		uc.writeFailure(id, err.Error())
	} else {
		// terminal write on a background context: the caller is long gone
		if serr := uc.store.Complete(context.Background(), id, result); serr != nil {
			uc.log.Error().Err(serr).Str("job_id", id).Msg("could not store job result")
		}
	}
	metrics.IncChatJob(string(status))
	uc.log.Info().Str("job_id", id).Str("status", string(status)).Dur("duration_ms", latency).Msg("chat job finished")
}

func (uc *chatJobUC) writeFailure(id, message string) {
	if err := uc.store.Fail(context.Background(), id, message); err != nil {
		uc.log.Error().Err(err).Str("job_id", id).Msg("could not store job failure")
	}
}

// run executes the pipeline stages strictly in sequence:
// fetch input image -> assemble -> invoke -> upload per attachment.
func (uc *chatJobUC) run(ctx context.Context, req *model.ChatRequest) (*model.ChatResult, error) {
	image, err := uc.inputImage(ctx, req)
	if err != nil {
		return nil, err
	}

	units, err := assembleContents(req.History, req.Prompt, image)
	if err != nil {
		return nil, err
	}

	reply, attachments, err := uc.ai.Generate(ctx, req.Model, units)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvocation, err)
	}
	if reply == "" && len(attachments) == 0 {
		return nil, domain.ErrNoUsableContent
	}

	result := &model.ChatResult{Reply: reply}
	for _, att := range attachments {
		if result.ImageURL != "" {
			break
		}
		if uc.storage == nil {
			break
		}
		url, uerr := uc.storage.Upload(ctx, att.Data, att.MIME)
		if uerr != nil {
			uc.log.Warn().Err(uerr).Msg("generated image not deliverable")
			continue
		}
		result.ImageURL = url
	}
	// image generated but not persisted: degrade to text with a notice
	if len(attachments) > 0 && result.ImageURL == "" {
		result.Reply += uploadFailedNote
	}
	return result, nil
}

// inputImage resolves the request's input image bytes, either inline base64
// or by downloading the referenced, already-hosted image.
func (uc *chatJobUC) inputImage(ctx context.Context, req *model.ChatRequest) ([]byte, error) {
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad image encoding", domain.ErrInvalidArgument)
		}
		return data, nil
	}
	if req.ImageURL == "" {
		return nil, nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.ImageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad image url", domain.ErrInvalidArgument)
	}
	resp, err := uc.fetcher.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch input image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch input image: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch input image: %w", err)
	}
	return data, nil
}
