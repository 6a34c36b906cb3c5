package wxcloud

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
)

// newStorageServer fakes the identity, metadata and upload endpoints.
func newStorageServer(t *testing.T, slotErrCode int) (*httptest.Server, *struct {
	slotCalls    int
	uploadCalls  int
	resolveCalls int
	uploadedKey  string
	uploadedSig  string
	uploadedBody []byte
}) {
	t.Helper()
	state := &struct {
		slotCalls    int
		uploadCalls  int
		resolveCalls int
		uploadedKey  string
		uploadedSig  string
		uploadedBody []byte
	}{}

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","expires_in":7200}`)
	})
	mux.HandleFunc("/tcb/uploadfile", func(w http.ResponseWriter, r *http.Request) {
		state.slotCalls++
		if r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("slot request missing access token")
		}
		var req struct {
			Env  string `json:"env"`
			Path string `json:"path"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Env != "test-env" || !strings.HasPrefix(req.Path, "ai-output/") {
			t.Errorf("unexpected slot request %+v", req)
		}
		if slotErrCode != 0 {
			fmt.Fprintf(w, `{"errcode":%d,"errmsg":"denied"}`, slotErrCode)
			return
		}
		fmt.Fprintf(w, `{"errcode":0,"url":"%s/upload","token":"sec-tok","authorization":"sig-123","cos_file_id":"cloud://file-1"}`, srv.URL)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		state.uploadCalls++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		state.uploadedKey = r.FormValue("key")
		state.uploadedSig = r.FormValue("Signature")
		if r.FormValue("x-cos-security-token") != "sec-tok" {
			t.Errorf("security token not passed through")
		}
		if r.FormValue("x-cos-meta-fileid") != "cloud://file-1" {
			t.Errorf("file id not passed through")
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			state.uploadedBody, _ = io.ReadAll(f)
			f.Close()
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/tcb/batchdownloadfile", func(w http.ResponseWriter, r *http.Request) {
		state.resolveCalls++
		var req struct {
			Env      string `json:"env"`
			FileList []struct {
				FileID string `json:"fileid"`
				MaxAge int    `json:"max_age"`
			} `json:"file_list"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.FileList) != 1 || req.FileList[0].FileID != "cloud://file-1" {
			t.Errorf("unexpected resolve request %+v", req)
		}
		if req.FileList[0].MaxAge != downloadURLMaxAge {
			t.Errorf("expected bounded max_age, got %d", req.FileList[0].MaxAge)
		}
		fmt.Fprint(w, `{"errcode":0,"file_list":[{"download_url":"https://cdn.example.com/file-1.jpg","status":0}]}`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, state
}

func newTestStorage(t *testing.T, base string) *Storage {
	t.Helper()
	creds, err := NewCredentials("app", "secret", base, testLogger())
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	s, err := NewStorage("test-env", base, creds, testLogger())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	return s
}

func TestStorage_UploadHappyPath(t *testing.T) {
	srv, state := newStorageServer(t, 0)
	s := newTestStorage(t, srv.URL)

	payload := []byte{0xff, 0xd8, 0xff}
	url, err := s.Upload(context.Background(), payload, "image/jpeg")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.example.com/file-1.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	if state.slotCalls != 1 || state.uploadCalls != 1 || state.resolveCalls != 1 {
		t.Fatalf("expected each step once, got %+v", state)
	}
	if !bytes.Equal(state.uploadedBody, payload) {
		t.Fatal("payload was not uploaded verbatim")
	}
	if state.uploadedSig != "sig-123" {
		t.Fatalf("signature not passed through, got %q", state.uploadedSig)
	}
	if !strings.HasSuffix(state.uploadedKey, ".jpg") {
		t.Fatalf("expected a .jpg destination path, got %q", state.uploadedKey)
	}
}

func TestStorage_SlotFailureAbortsBeforeUpload(t *testing.T) {
	srv, state := newStorageServer(t, 85002)
	s := newTestStorage(t, srv.URL)

	if _, err := s.Upload(context.Background(), []byte{1}, "image/png"); err == nil {
		t.Fatal("expected slot request failure")
	}
	if state.uploadCalls != 0 {
		t.Fatalf("no multipart POST may be attempted after a slot failure, got %d", state.uploadCalls)
	}
	if state.resolveCalls != 0 {
		t.Fatalf("no resolution may be attempted after a slot failure, got %d", state.resolveCalls)
	}
}

func TestStorage_NonNoContentStatusIsUploadFailure(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/cgi-bin/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok","expires_in":7200}`)
	})
	mux.HandleFunc("/tcb/uploadfile", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"errcode":0,"url":"%s/upload","token":"t","authorization":"a","cos_file_id":"f"}`, srv.URL)
	})
	resolved := false
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // 200 is not success for this protocol
	})
	mux.HandleFunc("/tcb/batchdownloadfile", func(w http.ResponseWriter, r *http.Request) {
		resolved = true
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	s := newTestStorage(t, srv.URL)
	if _, err := s.Upload(context.Background(), []byte{1}, "image/png"); err == nil {
		t.Fatal("expected upload failure on non-204 status")
	}
	if resolved {
		t.Fatal("URL resolution must not run after a failed upload")
	}
}

func TestStorage_UniquePaths(t *testing.T) {
	a := uploadPath("image/png")
	b := uploadPath("image/png")
	if a == b {
		t.Fatalf("paths must not collide: %q", a)
	}
	if !strings.HasSuffix(a, ".png") {
		t.Fatalf("expected .png suffix, got %q", a)
	}
	if !strings.HasSuffix(uploadPath("application/octet-stream"), ".bin") {
		t.Fatal("unknown mime should map to .bin")
	}
}
