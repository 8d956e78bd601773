package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"livechat/internal/app/protocol"
	"livechat/internal/app/relay"
	"livechat/internal/app/view"
	"livechat/internal/configs"
	"livechat/internal/handler"
	"livechat/internal/pkg/errs"
)

type fakeStorage struct {
	mu       sync.Mutex
	uploaded map[string]string
	fail     bool
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, mimeType string, size int64, d time.Duration) (string, error) {
	if f.fail {
		return "", errors.New("store down")
	}
	return "https://store.example/" + key + "?sig=1", nil
}

func (f *fakeStorage) Upload(_ context.Context, key, mimeType string, body io.Reader) error {
	if f.fail {
		return errors.New("store down")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = make(map[string]string)
	}
	f.uploaded[key] = mimeType + ":" + string(data)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.example/" + key
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T, env string, store *fakeStorage) (*httptest.Server, *relay.Hub) {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()

	deps := &handler.AppDeps{
		Hub: hub,
		Config: &configs.AppConfig{
			Environment:    env,
			AllowedOrigins: []string{"https://chat.example"},
		},
	}
	if store != nil {
		deps.StorageService = store
	}

	srv := httptest.NewServer(handler.Router(deps))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return srv, hub
}

func decode(t *testing.T, res *http.Response) apiResponse {
	t.Helper()
	defer res.Body.Close()
	var out apiResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func postFile(t *testing.T, url, field, name, mimeType, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	io.WriteString(part, content)
	mw.Close()

	res, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t, "production", nil)

	res, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	out := decode(t, res)
	if out.Code != 0 || !strings.Contains(string(out.Data), `"media_enabled":false`) {
		t.Errorf("body = %+v %s", out, out.Data)
	}
}

func TestListUsers(t *testing.T) {
	srv, hub := newServer(t, "development", nil)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(protocol.Encode(protocol.Register("alice")))); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if got := hub.Online(); len(got) != 1 {
		t.Fatalf("Online() = %v", got)
	}

	res, err := http.Get(srv.URL + "/api/users")
	if err != nil {
		t.Fatalf("GET /api/users: %v", err)
	}
	out := decode(t, res)

	var data struct {
		Count int `json:"count"`
		Users []struct {
			Name   string `json:"name"`
			Avatar string `json:"avatar"`
		} `json:"users"`
	}
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Count != 1 || data.Users[0].Name != "alice" || data.Users[0].Avatar != view.AvatarURL("alice") {
		t.Errorf("users = %+v", data)
	}
}

func TestWebSocketOrigin(t *testing.T) {
	srv, _ := newServer(t, "production", nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	tests := []struct {
		origin string
		ok     bool
	}{
		{"https://chat.example", true},
		{"", true},
		{"https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, res, err := websocket.DefaultDialer.Dial(url, header)
			if tt.ok {
				if err != nil {
					t.Fatalf("Dial() error = %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("Dial() succeeded for a foreign origin")
			}
			if res == nil || res.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", res)
			}
		})
	}
}

func TestPresignMedia(t *testing.T) {
	tests := []struct {
		name     string
		store    *fakeStorage
		body     string
		wantHTTP int
		wantCode int
	}{
		{"disabled", nil, `{"file_name":"a.gif","mime_type":"image/gif","file_size":10}`, http.StatusServiceUnavailable, errs.ErrMediaDisabled},
		{"ok", &fakeStorage{}, `{"file_name":"a.gif","mime_type":"image/gif","file_size":10}`, http.StatusOK, 0},
		{"bad json", &fakeStorage{}, `{"file_name":`, http.StatusOK, errs.ErrInvalidJSONFormat},
		{"unknown field", &fakeStorage{}, `{"file_name":"a.gif","room":"x"}`, http.StatusOK, errs.ErrInvalidJSONFormat},
		{"too large", &fakeStorage{}, `{"file_name":"a.gif","mime_type":"image/gif","file_size":99999999}`, http.StatusOK, errs.ErrFileSizeTooLarge},
		{"wrong type", &fakeStorage{}, `{"file_name":"a.txt","mime_type":"text/plain","file_size":10}`, http.StatusOK, errs.ErrMediaTypeNotAllowed},
		{"store down", &fakeStorage{fail: true}, `{"file_name":"a.gif","mime_type":"image/gif","file_size":10}`, http.StatusBadGateway, errs.ErrFileStorageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, "development", tt.store)

			res := postJSON(t, srv.URL+"/api/media/presign", tt.body)
			if res.StatusCode != tt.wantHTTP {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantHTTP)
			}
			out := decode(t, res)
			if out.Code != tt.wantCode {
				t.Fatalf("code = %d (%s), want %d", out.Code, out.Message, tt.wantCode)
			}
			if tt.wantCode != 0 {
				return
			}

			var data struct {
				PresignedURL string `json:"presignedUrl"`
				FileKey      string `json:"fileKey"`
				URL          string `json:"url"`
			}
			if err := json.Unmarshal(out.Data, &data); err != nil {
				t.Fatalf("unmarshal data: %v", err)
			}
			if !strings.HasPrefix(data.FileKey, "media/") || !strings.HasSuffix(data.FileKey, ".gif") {
				t.Errorf("fileKey = %q", data.FileKey)
			}
			if data.URL != "https://cdn.example/"+data.FileKey {
				t.Errorf("url = %q", data.URL)
			}
			if !strings.Contains(data.PresignedURL, data.FileKey) {
				t.Errorf("presignedUrl = %q", data.PresignedURL)
			}
		})
	}
}

func TestUploadMedia(t *testing.T) {
	store := &fakeStorage{}
	srv, _ := newServer(t, "development", store)

	res := postFile(t, srv.URL+"/api/media", "file", "party.gif", "image/gif", "GIF89a")
	out := decode(t, res)
	if out.Code != 0 {
		t.Fatalf("code = %d (%s), want 0", out.Code, out.Message)
	}

	var data struct {
		FileKey string `json:"fileKey"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if !strings.HasSuffix(data.URL, ".gif") || data.URL != "https://cdn.example/"+data.FileKey {
		t.Errorf("data = %+v", data)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if got := store.uploaded[data.FileKey]; got != "image/gif:GIF89a" {
		t.Errorf("stored %q", got)
	}
}

func TestUploadMedia_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		store    *fakeStorage
		field    string
		file     string
		mime     string
		wantCode int
	}{
		{"disabled", nil, "file", "a.gif", "image/gif", errs.ErrMediaDisabled},
		{"missing field", &fakeStorage{}, "upload", "a.gif", "image/gif", errs.ErrInvalidParams},
		{"type mismatch", &fakeStorage{}, "file", "a.gif", "image/png", errs.ErrMediaTypeNotAllowed},
		{"store down", &fakeStorage{fail: true}, "file", "a.gif", "image/gif", errs.ErrFileStorageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, "development", tt.store)

			out := decode(t, postFile(t, srv.URL+"/api/media", tt.field, tt.file, tt.mime, "data"))
			if out.Code != tt.wantCode {
				t.Errorf("code = %d (%s), want %d", out.Code, out.Message, tt.wantCode)
			}
		})
	}
}

func TestUploadMedia_NotMultipart(t *testing.T) {
	srv, _ := newServer(t, "development", &fakeStorage{})

	out := decode(t, postJSON(t, srv.URL+"/api/media", `{}`))
	if out.Code != errs.ErrUnsupportedMediaType {
		t.Errorf("code = %d, want %d", out.Code, errs.ErrUnsupportedMediaType)
	}
}
