package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVideo() *Video {
	return &Video{
		Snippet: &Snippet{
			Title:       "Test Video",
			Description: "A test",
			Tags:        []string{"go", "testing"},
			CategoryID:  DefaultCategoryID,
		},
		Status: &Status{
			PrivacyStatus:           "unlisted",
			SelfDeclaredMadeForKids: false,
		},
	}
}

func TestStartUpload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "resumable", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "snippet,status", r.URL.Query().Get("part"))
		assert.Equal(t, "42", r.Header.Get("X-Upload-Content-Length"))
		assert.Equal(t, "video/mp4", r.Header.Get("X-Upload-Content-Type"))

		var v Video
		require.NoError(t, json.NewDecoder(r.Body).Decode(&v))
		assert.Equal(t, "Test Video", v.Snippet.Title)
		assert.Equal(t, "unlisted", v.Status.PrivacyStatus)

		w.Header().Set("Location", "http://session.example/upload?id=abc")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	sessionURL, err := client.StartUpload(context.Background(), testVideo(), 42, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://session.example/upload?id=abc", sessionURL)
}

func TestStartUpload_MissingLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.StartUpload(context.Background(), testVideo(), 1, "video/mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Location")
}

func TestUploadChunk_Intermediate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "bytes 0-9/20", r.Header.Get("Content-Range"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(body))

		w.Header().Set("Range", "bytes=0-9")
		w.WriteHeader(resumeIncomplete)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	video, err := client.UploadChunk(
		context.Background(), srv.URL, strings.NewReader("0123456789"), 0, 10, 20,
	)
	require.NoError(t, err)
	assert.Nil(t, video, "intermediate chunk returns no video")
}

func TestUploadChunk_Final(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes 10-19/20", r.Header.Get("Content-Range"))

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"id":"vid-123","snippet":{"title":"Test Video"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	video, err := client.UploadChunk(
		context.Background(), srv.URL, strings.NewReader("abcdefghij"), 10, 10, 20,
	)
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, "vid-123", video.ID)
}

func TestUploadChunk_QuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"The request cannot be completed",
			"errors":[{"reason":"quotaExceeded","domain":"youtube.quota"}]}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.UploadChunk(context.Background(), srv.URL, strings.NewReader("x"), 0, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestUploadFile_ChunkLoop(t *testing.T) {
	content := bytes.Repeat([]byte("a"), 3*chunkAlignment/2) // 1.5 chunks

	var received bytes.Buffer

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/videos", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", srv.URL+"/session")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received.Write(body)

		if received.Len() < len(content) {
			w.WriteHeader(resumeIncomplete)
			return
		}

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"vid-456"}`)
	})

	client := newTestClient(t, srv.URL)
	client.SetChunkSize(chunkAlignment)

	var progressCalls []int64

	video, err := client.UploadFile(
		context.Background(), testVideo(), bytes.NewReader(content), int64(len(content)),
		"video/mp4", func(sent, _ int64) { progressCalls = append(progressCalls, sent) },
	)
	require.NoError(t, err)
	assert.Equal(t, "vid-456", video.ID)
	assert.Equal(t, content, received.Bytes())
	assert.Equal(t, []int64{chunkAlignment, int64(len(content))}, progressCalls)
}

func TestUploadFile_ChunkFailureFailsTransfer(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/videos", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", srv.URL+"/session")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"bad content range"}}`)
	})

	client := newTestClient(t, srv.URL)

	_, err := client.UploadFile(
		context.Background(), testVideo(), strings.NewReader("data"), 4, "video/mp4", nil,
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestUpdateVideo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "snippet,status", r.URL.Query().Get("part"))

		var v Video
		require.NoError(t, json.NewDecoder(r.Body).Decode(&v))
		assert.Equal(t, "vid-123", v.ID)
		assert.Equal(t, []string{"go", "testing"}, v.Snippet.Tags)

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"id":"vid-123","status":{"privacyStatus":"unlisted"}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	video := testVideo()
	video.ID = "vid-123"

	updated, err := client.UpdateVideo(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, "vid-123", updated.ID)
	assert.Equal(t, "unlisted", updated.Status.PrivacyStatus)
}

func TestUpdateVideo_RequiresID(t *testing.T) {
	client := newTestClient(t, "http://unused")

	_, err := client.UpdateVideo(context.Background(), testVideo())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video ID")
}

func TestUpdateVideo_InvalidMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"The request metadata specifies an invalid video title",
			"errors":[{"reason":"invalidTitle","domain":"youtube.video"}]}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	video := testVideo()
	video.ID = "vid-123"

	_, err := client.UpdateVideo(context.Background(), video)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}
