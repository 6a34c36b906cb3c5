package wxcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"miniprogram-ai-chat/internal/domain"
	"miniprogram-ai-chat/internal/domain/ports/adapter"
	"miniprogram-ai-chat/internal/infra/metrics"
)

var _ adapter.ObjectStorage = (*Storage)(nil)

// downloadURLMaxAge bounds the validity of resolved download URLs (seconds).
const downloadURLMaxAge = 86400

// Storage persists blobs to the mini-program cloud object store via the
// three-step protocol: request an upload slot, multipart-upload to the signed
// URL, then exchange the file reference for a download URL.
type Storage struct {
	env      string
	base     string
	creds    *Credentials
	meta     *http.Client // slot request + URL resolution
	transfer *http.Client // binary upload
	log      *zerolog.Logger
}

func NewStorage(env, base string, creds *Credentials, log *zerolog.Logger) (*Storage, error) {
	if env == "" {
		return nil, errors.New("wxcloud: env empty")
	}
	if creds == nil {
		return nil, errors.New("wxcloud: credentials required")
	}
	return &Storage{
		env:      env,
		base:     base,
		creds:    creds,
		meta:     &http.Client{Timeout: 10 * time.Second},
		transfer: &http.Client{Timeout: 60 * time.Second},
		log:      log,
	}, nil
}

type uploadSlot struct {
	ErrCode       int    `json:"errcode"`
	ErrMsg        string `json:"errmsg"`
	URL           string `json:"url"`
	Token         string `json:"token"`
	Authorization string `json:"authorization"`
	CosFileID     string `json:"cos_file_id"`
}

// Upload writes data to the object store and returns a time-bounded download
// URL. Any step's failure aborts the whole upload.
func (s *Storage) Upload(ctx context.Context, data []byte, mime string) (string, error) {
	token, err := s.creds.Token(ctx)
	if err != nil {
		return "", err
	}

	path := uploadPath(mime)
	slot, err := s.requestSlot(ctx, token, path)
	if err != nil {
		metrics.IncStorageStep("slot", "fail")
		return "", err
	}
	metrics.IncStorageStep("slot", "ok")

	if err := s.uploadBytes(ctx, slot, path, data); err != nil {
		metrics.IncStorageStep("upload", "fail")
		return "", err
	}
	metrics.IncStorageStep("upload", "ok")

	url, err := s.resolveURL(ctx, token, slot.CosFileID)
	if err != nil {
		metrics.IncStorageStep("resolve", "fail")
		return "", err
	}
	metrics.IncStorageStep("resolve", "ok")
	s.log.Info().Str("path", path).Msg("generated file persisted")
	return url, nil
}

// requestSlot asks the store for a one-time signed upload URL plus the
// signature fields that must accompany the payload.
func (s *Storage) requestSlot(ctx context.Context, token, path string) (*uploadSlot, error) {
	payload := map[string]any{"env": s.env, "path": path}
	b, _ := json.Marshal(payload)
	u := fmt.Sprintf("%s/tcb/uploadfile?access_token=%s", s.base, token)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.meta.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSlotRequest, err)
	}
	defer resp.Body.Close()

	var slot uploadSlot
	if err := json.NewDecoder(resp.Body).Decode(&slot); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrSlotRequest, err)
	}
	if slot.ErrCode != 0 {
		return nil, fmt.Errorf("%w: errcode=%d %s", domain.ErrSlotRequest, slot.ErrCode, slot.ErrMsg)
	}
	return &slot, nil
}

// uploadBytes performs the multipart form upload to the signed URL. The
// signature fields are passed through exactly as the slot response returned
// them; the store rejects re-derived or reordered values.
func (s *Storage) uploadBytes(ctx context.Context, slot *uploadSlot, path string, data []byte) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("key", path)
	_ = form.WriteField("Signature", slot.Authorization)
	_ = form.WriteField("x-cos-security-token", slot.Token)
	_ = form.WriteField("x-cos-meta-fileid", slot.CosFileID)
	part, err := form.CreateFormFile("file", path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, slot.URL, &body)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.transfer.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status=%d", domain.ErrUpload, resp.StatusCode)
	}
	return nil
}

// resolveURL exchanges the internal file reference for a public download URL.
func (s *Storage) resolveURL(ctx context.Context, token, fileID string) (string, error) {
	payload := map[string]any{
		"env": s.env,
		"file_list": []map[string]any{
			{"fileid": fileID, "max_age": downloadURLMaxAge},
		},
	}
	b, _ := json.Marshal(payload)
	u := fmt.Sprintf("%s/tcb/batchdownloadfile?access_token=%s", s.base, token)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.meta.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		ErrCode  int    `json:"errcode"`
		ErrMsg   string `json:"errmsg"`
		FileList []struct {
			DownloadURL string `json:"download_url"`
			Status      int    `json:"status"`
		} `json:"file_list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("resolve url decode: %w", err)
	}
	if out.ErrCode != 0 || len(out.FileList) == 0 || out.FileList[0].DownloadURL == "" {
		return "", fmt.Errorf("resolve url rejected: errcode=%d %s", out.ErrCode, out.ErrMsg)
	}
	return out.FileList[0].DownloadURL, nil
}

// uploadPath derives a collision-safe destination path for a generated file.
func uploadPath(mime string) string {
	ext := ".bin"
	switch mime {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return fmt.Sprintf("ai-output/%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
}
