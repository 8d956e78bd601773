package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// UploadPath is the relay endpoint that accepts multipart uploads.
const UploadPath = "/api/media"

// Result is what the relay returns for a stored file.
type Result struct {
	Key string `json:"fileKey"`
	URL string `json:"url"`
}

// apiResponse mirrors the relay's JSON envelope.
type apiResponse struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Data    *Result `json:"data"`
}

// Upload sends the image at filePath to the relay at baseURL and returns
// its public URL. The file is validated locally first so obvious rejections
// never leave the machine.
func Upload(ctx context.Context, client *http.Client, baseURL, filePath string) (Result, error) {
	name := filepath.Base(filePath)

	mimeType, ok := MIMEFromName(name)
	if !ok {
		return Result{}, ValidateFileType(name, "")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if cerr := ValidateFileSize(info.Size()); cerr != nil {
		return Result{}, cerr
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return Result{}, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return Result{}, fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("finish multipart body: %w", err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + UploadPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Result{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode upload response (HTTP %d): %w", resp.StatusCode, err)
	}

	if out.Code != 0 || out.Data == nil {
		return Result{}, fmt.Errorf("upload rejected: %s (code %d, HTTP %d)", out.Message, out.Code, resp.StatusCode)
	}

	return *out.Data, nil
}
