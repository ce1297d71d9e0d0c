package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// ProgressFunc reports transfer progress: bytes sent so far and the total.
type ProgressFunc func(sent, total int64)

// StartUpload initiates a resumable upload session for a video. The returned
// session URL accepts chunked PUTs until the transfer completes or the
// session expires. The snippet and status parts are bound to the video at
// session creation; UpdateVideo applies the full metadata after transfer.
func (c *Client) StartUpload(ctx context.Context, video *Video, size int64, contentType string) (string, error) {
	c.logger.Info("creating upload session",
		slog.String("title", video.Snippet.Title),
		slog.Int64("size", size),
	)

	body, err := json.Marshal(video)
	if err != nil {
		return "", fmt.Errorf("youtube: marshaling upload session request: %w", err)
	}

	url := c.uploadBase + "/videos?uploadType=resumable&part=snippet,status"

	headers := http.Header{}
	headers.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	headers.Set("X-Upload-Content-Type", contentType)

	resp, err := c.do(ctx, http.MethodPost, url, body, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Drain body to reuse connection — the session URI is in the header.
	if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
		return "", fmt.Errorf("youtube: draining session response body: %w", drainErr)
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", fmt.Errorf("youtube: upload session response missing Location header")
	}

	c.logger.Debug("upload session created")

	return sessionURL, nil
}

// UploadChunk uploads one byte range to an upload session.
// Returns the completed Video on the final chunk (200/201), nil for
// intermediate chunks (308 Resume Incomplete). offset is the byte offset,
// length is the chunk size, total is the full file size.
func (c *Client) UploadChunk(
	ctx context.Context, sessionURL string, chunk io.Reader,
	offset, length, total int64,
) (*Video, error) {
	c.logger.Debug("uploading chunk",
		slog.Int64("offset", offset),
		slog.Int64("length", length),
		slog.Int64("total", total),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, chunk)
	if err != nil {
		return nil, fmt.Errorf("youtube: creating chunk upload request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube: obtaining token for chunk upload: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = length

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("chunk upload request failed",
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("youtube: chunk upload request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.handleChunkResponse(resp)
}

// resumeIncomplete is the non-standard status Google uses for accepted
// intermediate chunks.
const resumeIncomplete = 308

// handleChunkResponse processes the HTTP response from an upload chunk
// request. 308 means intermediate chunk accepted; 200/201 means the transfer
// is complete and the body carries the created video resource.
func (c *Client) handleChunkResponse(resp *http.Response) (*Video, error) {
	switch resp.StatusCode {
	case resumeIncomplete:
		// Intermediate chunk accepted. Drain body to reuse connection.
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return nil, fmt.Errorf("youtube: draining chunk response body: %w", drainErr)
		}

		c.logger.Debug("intermediate chunk accepted",
			slog.String("received_range", resp.Header.Get("Range")),
		)

		return nil, nil

	case http.StatusOK, http.StatusCreated:
		var video Video
		if decErr := json.NewDecoder(resp.Body).Decode(&video); decErr != nil {
			return nil, fmt.Errorf("youtube: decoding final chunk response: %w", decErr)
		}

		c.logger.Debug("transfer complete",
			slog.String("video_id", video.ID),
		)

		return &video, nil

	default:
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		c.logger.Error("chunk upload failed",
			slog.Int("status", resp.StatusCode),
		)

		return nil, newAPIError(resp.StatusCode, body)
	}
}

// UploadFile drives a full resumable transfer: session creation, then
// sequential chunk PUTs from the reader until the final chunk returns the
// created video. No chunk-level retry — a failed chunk fails the transfer
// and the row.
func (c *Client) UploadFile(
	ctx context.Context, video *Video, content io.ReaderAt, size int64,
	contentType string, progress ProgressFunc,
) (*Video, error) {
	sessionURL, err := c.StartUpload(ctx, video, size, contentType)
	if err != nil {
		return nil, err
	}

	for offset := int64(0); offset < size; offset += c.chunkSize {
		length := c.chunkSize
		if offset+length > size {
			length = size - offset
		}

		chunk := io.NewSectionReader(content, offset, length)

		uploaded, chunkErr := c.UploadChunk(ctx, sessionURL, chunk, offset, length, size)
		if chunkErr != nil {
			return nil, chunkErr
		}

		if progress != nil {
			progress(offset+length, size)
		}

		if uploaded != nil {
			return uploaded, nil
		}
	}

	// Every chunk was accepted with 308 but the server never finalized —
	// only possible if the server disagrees about the total size.
	return nil, fmt.Errorf("youtube: transfer of %d bytes never finalized", size)
}

// UpdateVideo applies snippet and status metadata to an existing video.
// video.ID must be set.
func (c *Client) UpdateVideo(ctx context.Context, video *Video) (*Video, error) {
	if video.ID == "" {
		return nil, fmt.Errorf("youtube: update requires a video ID")
	}

	c.logger.Info("updating video metadata",
		slog.String("video_id", video.ID),
	)

	body, err := json.Marshal(video)
	if err != nil {
		return nil, fmt.Errorf("youtube: marshaling video update: %w", err)
	}

	url := c.apiBase + "/videos?part=snippet,status"

	resp, err := c.do(ctx, http.MethodPut, url, body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var updated Video
	if decErr := json.NewDecoder(resp.Body).Decode(&updated); decErr != nil {
		return nil, fmt.Errorf("youtube: decoding video update response: %w", decErr)
	}

	return &updated, nil
}
