package uploader

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/conjurecontent/backend/pkg/config"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

const (
	testMinChunk = 5_242_880
	testMaxChunk = 67_108_864
)

type recordedChunk struct {
	contentRange string
	contentType  string
	body         []byte
}

type fakePlatform struct {
	t          *testing.T
	mux        *http.ServeMux
	server     *httptest.Server
	initBody   initRequest
	authHeader string
	chunks     []recordedChunk
	initStatus int
	putStatus  func(chunkIndex int) int
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	p := &fakePlatform{t: t, mux: http.NewServeMux(), initStatus: http.StatusOK}
	p.mux.HandleFunc("POST /init", func(w http.ResponseWriter, r *http.Request) {
		p.authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&p.initBody); err != nil {
			t.Errorf("decoding init body: %v", err)
		}
		if p.initStatus != http.StatusOK {
			w.WriteHeader(p.initStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"publish_id": "pub-1",
				"upload_url": p.server.URL + "/upload",
			},
		})
	})
	p.mux.HandleFunc("PUT /upload", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading chunk body: %v", err)
		}
		p.chunks = append(p.chunks, recordedChunk{
			contentRange: r.Header.Get("Content-Range"),
			contentType:  r.Header.Get("Content-Type"),
			body:         body,
		})
		if p.putStatus != nil {
			w.WriteHeader(p.putStatus(len(p.chunks)))
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	p.server = httptest.NewServer(p.mux)
	t.Cleanup(p.server.Close)
	return p
}

func newTestUploader(t *testing.T, p *fakePlatform) *Uploader {
	t.Helper()
	u, err := New(Params{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		TikTok: config.TikTokConfig{InitURL: p.server.URL + "/init"},
		Upload: config.UploadConfig{
			MinChunkBytes: testMinChunk,
			MaxChunkBytes: testMaxChunk,
			PrivacyLevel:  "SELF_ONLY",
		},
		HTTPClient: p.server.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return u
}

func writeTestVideo(t *testing.T, size int64) (string, []byte) {
	t.Helper()
	content := make([]byte, size)
	if _, err := rand.Read(content); err != nil {
		t.Fatalf("generating content: %v", err)
	}
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path, content
}

func TestUploadSingleChunkAtMinimumBoundary(t *testing.T) {
	p := newFakePlatform(t)
	u := newTestUploader(t, p)
	path, content := writeTestVideo(t, testMinChunk)

	if err := u.Upload(context.Background(), "token-1", path, "My Story"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if p.authHeader != "Bearer token-1" {
		t.Fatalf("unexpected auth header %q", p.authHeader)
	}
	if p.initBody.SourceInfo.Source != "FILE_UPLOAD" {
		t.Fatalf("unexpected source %q", p.initBody.SourceInfo.Source)
	}
	if p.initBody.SourceInfo.VideoSize != testMinChunk ||
		p.initBody.SourceInfo.ChunkSize != testMinChunk ||
		p.initBody.SourceInfo.TotalChunkCount != 1 {
		t.Fatalf("unexpected init source info %+v", p.initBody.SourceInfo)
	}
	if p.initBody.PostInfo.Title != "My Story" || p.initBody.PostInfo.PrivacyLevel != "SELF_ONLY" {
		t.Fatalf("unexpected init post info %+v", p.initBody.PostInfo)
	}

	if len(p.chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(p.chunks))
	}
	if p.chunks[0].contentRange != "bytes 0-5242879/5242880" {
		t.Fatalf("unexpected content range %q", p.chunks[0].contentRange)
	}
	if p.chunks[0].contentType != "video/mp4" {
		t.Fatalf("unexpected content type %q", p.chunks[0].contentType)
	}
	if string(p.chunks[0].body) != string(content) {
		t.Fatal("chunk body does not match file content")
	}
}

func TestUploadRemainderFoldedIntoFinalChunk(t *testing.T) {
	p := newFakePlatform(t)
	u := newTestUploader(t, p)
	const size = 12 * 1024 * 1024
	path, content := writeTestVideo(t, size)

	if err := u.Upload(context.Background(), "token-1", path, "My Story"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if p.initBody.SourceInfo.ChunkSize != testMinChunk ||
		p.initBody.SourceInfo.TotalChunkCount != 2 {
		t.Fatalf("unexpected init source info %+v", p.initBody.SourceInfo)
	}
	if len(p.chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(p.chunks))
	}
	if p.chunks[0].contentRange != "bytes 0-5242879/12582912" {
		t.Fatalf("unexpected first range %q", p.chunks[0].contentRange)
	}
	if p.chunks[1].contentRange != "bytes 5242880-12582911/12582912" {
		t.Fatalf("unexpected final range %q", p.chunks[1].contentRange)
	}
	if len(p.chunks[1].body) != size-testMinChunk {
		t.Fatalf("final chunk length %d", len(p.chunks[1].body))
	}
	reassembled := append(append([]byte(nil), p.chunks[0].body...), p.chunks[1].body...)
	if string(reassembled) != string(content) {
		t.Fatal("reassembled chunks do not match file content")
	}
}

func TestUploadInitFailure(t *testing.T) {
	p := newFakePlatform(t)
	p.initStatus = http.StatusUnauthorized
	u := newTestUploader(t, p)
	path, _ := writeTestVideo(t, 1024)

	err := u.Upload(context.Background(), "expired", path, "My Story")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUploadInit) {
		t.Fatalf("expected UPLOAD_INIT_ERROR, got %v", err)
	}
	if len(p.chunks) != 0 {
		t.Fatal("no chunks may be sent after a failed init")
	}
}

func TestUploadChunkFailureStopsSequence(t *testing.T) {
	p := newFakePlatform(t)
	p.putStatus = func(chunkIndex int) int {
		if chunkIndex == 2 {
			return http.StatusBadGateway
		}
		return http.StatusCreated
	}
	u := newTestUploader(t, p)
	path, _ := writeTestVideo(t, 16*1024*1024)

	err := u.Upload(context.Background(), "token-1", path, "My Story")
	if !pkgerrors.HasCode(err, pkgerrors.CodeChunkUpload) {
		t.Fatalf("expected CHUNK_UPLOAD_ERROR, got %v", err)
	}
	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok || details["chunk"] != int64(2) {
		t.Fatalf("expected failing chunk index detail, got %v", typed.Details())
	}
	// 16 MiB plans 3 chunks; the failure on chunk 2 must stop chunk 3.
	if len(p.chunks) != 2 {
		t.Fatalf("expected upload to stop after chunk 2, got %d chunks", len(p.chunks))
	}
}

func TestUploadMissingFile(t *testing.T) {
	p := newFakePlatform(t)
	u := newTestUploader(t, p)

	err := u.Upload(context.Background(), "token-1", "/nope/video.mp4", "My Story")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUploadInit) {
		t.Fatalf("expected UPLOAD_INIT_ERROR, got %v", err)
	}
}
