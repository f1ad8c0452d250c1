package openwebui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"quill/internal/logging"
)

// benignLinkErrors are response fragments the server returns when a file is
// already a member of the collection. The link is effectively in place, so
// these are treated as success.
var benignLinkErrors = []string{
	"Duplicate content",
	"failed to extract enum MetadataValue",
}

type storedFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// DeleteFileByName removes any stored file with the given name. It returns
// true when a file was found and deleted, false when no file matched.
func (c *Client) DeleteFileByName(ctx context.Context, filename string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/api/v1/files/", nil)
	if err != nil {
		return false, fmt.Errorf("open webui files: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("open webui files: list: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("open webui files: read list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var files []storedFile
	if err := json.Unmarshal(body, &files); err != nil {
		return false, fmt.Errorf("open webui files: decode list: %w", err)
	}
	var targetID string
	for _, f := range files {
		if f.Filename == filename {
			targetID = f.ID
			break
		}
	}
	if targetID == "" {
		return false, nil
	}

	delReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.URL+"/api/v1/files/"+targetID, nil)
	if err != nil {
		return false, fmt.Errorf("open webui files: new delete request: %w", err)
	}
	delReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	delResp, err := c.httpClient.Do(delReq)
	if err != nil {
		return false, fmt.Errorf("open webui files: delete: %w", err)
	}
	defer delResp.Body.Close()
	io.Copy(io.Discard, delResp.Body) //nolint:errcheck
	return true, nil
}

// UploadFile uploads a local file under the given name and returns the stored
// file's identifier. Any prior file with the same name is deleted first, best
// effort, so edited documents replace their previous upload.
func (c *Client) UploadFile(ctx context.Context, path, filename string) (string, error) {
	if _, err := c.DeleteFileByName(ctx, filename); err != nil {
		// Best effort; a stale previous upload must not block the new one.
		c.logger.Warn("delete previous upload failed",
			logging.String("filename", filename), logging.Error(err))
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open webui upload: open %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("open webui upload: create form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("open webui upload: copy body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("open webui upload: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/api/v1/files/", &buf)
	if err != nil {
		return "", fmt.Errorf("open webui upload: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("open webui upload: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("open webui upload: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var uploaded storedFile
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("open webui upload: decode response: %w", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("open webui upload: response missing file id (response_snippet=%s)", summarizePayloadSnippet(string(body)))
	}
	return uploaded.ID, nil
}

// LinkToCollection adds an uploaded file to a knowledge collection. Known
// benign rejections (the file already belongs to the collection) count as
// success.
func (c *Client) LinkToCollection(ctx context.Context, fileID, collectionID string) error {
	if strings.TrimSpace(collectionID) == "" {
		return fmt.Errorf("open webui link: collection id required")
	}
	payload, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return fmt.Errorf("open webui link: encode body: %w", err)
	}
	endpoint := c.cfg.URL + "/api/v1/knowledge/" + collectionID + "/file/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("open webui link: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open webui link: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("open webui link: read body: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	for _, benign := range benignLinkErrors {
		if strings.Contains(string(body), benign) {
			return nil
		}
	}
	return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
