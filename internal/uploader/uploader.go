package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/conjurecontent/backend/internal/chunk"
	"github.com/conjurecontent/backend/pkg/config"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

const (
	sourceFileUpload = "FILE_UPLOAD"
	videoContentType = "video/mp4"
)

// Uploader pushes a finished video to the platform via its two-phase
// protocol: an init POST that reserves an upload URL, then sequential
// byte-range PUTs. It keeps no state across calls.
type Uploader struct {
	httpClient   *http.Client
	initURL      string
	minChunk     int64
	maxChunk     int64
	privacyLevel string
	logg         *logger.Logger
}

type Params struct {
	Logger     *logger.Logger
	TikTok     config.TikTokConfig
	Upload     config.UploadConfig
	HTTPClient *http.Client
}

// New builds an uploader, validating the platform configuration.
func New(params Params) (*Uploader, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.TikTok.InitURL == "" {
		return nil, errors.New("init url is required")
	}
	if params.Upload.MinChunkBytes <= 0 || params.Upload.MaxChunkBytes < params.Upload.MinChunkBytes {
		return nil, fmt.Errorf("invalid chunk bounds [%d, %d]",
			params.Upload.MinChunkBytes, params.Upload.MaxChunkBytes)
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Uploader{
		httpClient:   httpClient,
		initURL:      params.TikTok.InitURL,
		minChunk:     params.Upload.MinChunkBytes,
		maxChunk:     params.Upload.MaxChunkBytes,
		privacyLevel: params.Upload.PrivacyLevel,
		logg:         params.Logger,
	}, nil
}

type initRequest struct {
	PostInfo   postInfo   `json:"post_info"`
	SourceInfo sourceInfo `json:"source_info"`
}

type postInfo struct {
	Title        string `json:"title"`
	PrivacyLevel string `json:"privacy_level"`
}

type sourceInfo struct {
	Source          string `json:"source"`
	VideoSize       int64  `json:"video_size"`
	ChunkSize       int64  `json:"chunk_size"`
	TotalChunkCount int64  `json:"total_chunk_count"`
}

type initResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
		UploadURL string `json:"upload_url"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the file at filePath under the given caption. A failure in
// any chunk fails the whole upload; the scheduler may retry the entire job
// on a later cycle, never mid-upload.
func (u *Uploader) Upload(ctx context.Context, accessToken, filePath, title string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "stat upload file")
	}
	fileSize := info.Size()

	plan, err := chunk.NewPlan(fileSize, u.minChunk, u.maxChunk)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "plan chunks")
	}

	uploadURL, err := u.initialize(ctx, accessToken, title, fileSize, plan)
	if err != nil {
		return err
	}

	ctx = u.logg.WithFields(ctx, map[string]any{
		"video_size":   fileSize,
		"chunk_size":   plan.ChunkSize,
		"total_chunks": plan.TotalChunks,
	})
	u.logg.Info(ctx, "upload initialized")

	return u.uploadChunks(ctx, uploadURL, filePath, fileSize, plan)
}

func (u *Uploader) initialize(ctx context.Context, accessToken, title string, fileSize int64, plan chunk.Plan) (string, error) {
	body, err := json.Marshal(initRequest{
		PostInfo: postInfo{
			Title:        title,
			PrivacyLevel: u.privacyLevel,
		},
		SourceInfo: sourceInfo{
			Source:          sourceFileUpload,
			VideoSize:       fileSize,
			ChunkSize:       plan.ChunkSize,
			TotalChunkCount: plan.TotalChunks,
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "encode init request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.initURL, bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "build init request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "init request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "read init response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", pkgerrors.New(pkgerrors.CodeUploadInit,
			fmt.Sprintf("init returned status %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": string(respBody)})
	}

	var parsed initResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadInit, err, "decode init response")
	}
	if parsed.Data.UploadURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeUploadInit, "init response missing upload url").
			WithDetails(map[string]any{"body": string(respBody)})
	}
	return parsed.Data.UploadURL, nil
}

func (u *Uploader) uploadChunks(ctx context.Context, uploadURL, filePath string, fileSize int64, plan chunk.Plan) error {
	file, err := os.Open(filePath)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeChunkUpload, err, "open upload file")
	}
	defer file.Close()

	for index := int64(1); index <= plan.TotalChunks; index++ {
		chunkLen := plan.ChunkSize
		if index == plan.TotalChunks {
			chunkLen = plan.FinalChunkSize(fileSize)
		}
		start := (index - 1) * plan.ChunkSize
		end := start + chunkLen - 1

		if err := u.putChunk(ctx, uploadURL, file, fileSize, start, end, chunkLen); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeChunkUpload, err,
				fmt.Sprintf("chunk %d of %d", index, plan.TotalChunks)).
				WithDetails(map[string]any{"chunk": index})
		}
	}
	return nil
}

func (u *Uploader) putChunk(ctx context.Context, uploadURL string, file io.Reader, fileSize, start, end, chunkLen int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, io.LimitReader(file, chunkLen))
	if err != nil {
		return fmt.Errorf("build chunk request: %w", err)
	}
	req.ContentLength = chunkLen
	req.Header.Set("Content-Type", videoContentType)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chunk request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chunk rejected with status %d", resp.StatusCode)
	}
	return nil
}
