package integration

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/service"
)

func TestThumbnailMirroredToMinIOAndRedirected(t *testing.T) {
	env := newMinIOIntegrationEnv(t)
	srv := newCatalogTestServer(t, catalogTestServerOptions{thumbnails: env.store})

	png := pngFixtureBytes()
	resp, envelope := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", map[string]any{
		"name":                      "Thumbnail Pedal",
		"product_number":            "PD-TH01",
		"standard_cost":             12.5,
		"list_price":                30,
		"thumbnail_photo_file_name": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil)
	if resp.StatusCode != http.StatusCreated || !envelope.Success {
		t.Fatalf("create with thumbnail failed: status=%d error=%#v", resp.StatusCode, envelope.Error)
	}
	var created domain.Product
	decodeData(t, envelope, &created)
	if !strings.HasSuffix(created.ThumbnailPhotoFileName, ".png") {
		t.Fatalf("expected generated png file name, got %q", created.ThumbnailPhotoFileName)
	}

	key := service.ThumbnailObjectKey(created.ID, created.ThumbnailPhotoFileName)
	if got := env.findThumbnailKey(t, created.ID); got != key {
		t.Fatalf("expected object key %q, got %q", key, got)
	}
	obj := env.mustStatObject(t, key)
	if obj.ContentType != "image/png" {
		t.Fatalf("expected content type image/png, got %q", obj.ContentType)
	}
	if obj.Size != int64(len(png)) {
		t.Fatalf("expected object size %d, got %d", len(png), obj.Size)
	}

	thumbURL := fmt.Sprintf("%s/api/v1/products/%d/thumbnail", srv.baseURL, created.ID)
	resp, _ = doRawText(t, srv.client, http.MethodGet, thumbURL, nil, nil)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307 to presigned url, got %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.Contains(location, key) || !strings.Contains(location, "X-Amz-Signature") {
		t.Fatalf("unexpected presigned location %q", location)
	}
	presigned, err := http.Get(location)
	if err != nil {
		t.Fatalf("fetch presigned url: %v", err)
	}
	body, _ := io.ReadAll(presigned.Body)
	_ = presigned.Body.Close()
	if presigned.StatusCode != http.StatusOK || !bytes.Equal(body, png) {
		t.Fatalf("presigned fetch mismatch: status=%d len=%d", presigned.StatusCode, len(body))
	}

	resp, _ = doJSON(t, srv.client, http.MethodDelete, fmt.Sprintf("%s/api/v1/products/%d", srv.baseURL, created.ID), nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}
	if env.mustObjectExists(t, key) {
		t.Fatalf("expected thumbnail object to be removed: %q", key)
	}
}

func TestThumbnailReplaceMovesMirroredObject(t *testing.T) {
	env := newMinIOIntegrationEnv(t)
	srv := newCatalogTestServer(t, catalogTestServerOptions{thumbnails: env.store})

	png := pngFixtureBytes()
	resp, envelope := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", map[string]any{
		"name":                      "Thumbnail Saddle",
		"product_number":            "SE-TH01",
		"standard_cost":             20,
		"list_price":                45,
		"thumbnail_photo_file_name": base64.StdEncoding.EncodeToString(png),
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: status=%d", resp.StatusCode)
	}
	var created domain.Product
	decodeData(t, envelope, &created)
	oldKey := service.ThumbnailObjectKey(created.ID, created.ThumbnailPhotoFileName)

	resp, _ = doJSON(t, srv.client, http.MethodPut, fmt.Sprintf("%s/api/v1/products/%d", srv.baseURL, created.ID), map[string]any{
		"id":                        created.ID,
		"name":                      "Thumbnail Saddle",
		"product_number":            "SE-TH01",
		"standard_cost":             20,
		"list_price":                45,
		"row_version":               created.RowVersion,
		"thumbnail_photo":           png,
		"thumbnail_photo_file_name": "saddle.png",
	}, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("replace failed: status=%d", resp.StatusCode)
	}

	newKey := service.ThumbnailObjectKey(created.ID, "saddle.png")
	if !env.mustObjectExists(t, newKey) {
		t.Fatalf("expected replacement object %q", newKey)
	}
	if env.mustObjectExists(t, oldKey) {
		t.Fatalf("expected previous object %q to be removed", oldKey)
	}
}

type failingPresignStore struct {
	mu   sync.Mutex
	puts []string
}

func (s *failingPresignStore) Put(_ context.Context, objectKey string, _ []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, objectKey)
	return nil
}

func (s *failingPresignStore) Delete(context.Context, string) error { return nil }

func (s *failingPresignStore) PresignedURL(context.Context, string) (string, error) {
	return "", errors.New("object storage offline")
}

func TestThumbnailFallsBackToStoredBytes(t *testing.T) {
	store := &failingPresignStore{}
	srv := newCatalogTestServer(t, catalogTestServerOptions{thumbnails: store})

	png := pngFixtureBytes()
	resp, envelope := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", map[string]any{
		"name":                      "Fallback Pedal",
		"product_number":            "PD-FB01",
		"standard_cost":             1,
		"list_price":                2,
		"thumbnail_photo_file_name": base64.StdEncoding.EncodeToString(png),
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: status=%d", resp.StatusCode)
	}
	var created domain.Product
	decodeData(t, envelope, &created)
	if len(store.puts) != 1 {
		t.Fatalf("expected one mirrored upload, got %v", store.puts)
	}

	resp, body := doRawText(t, srv.client, http.MethodGet, fmt.Sprintf("%s/api/v1/products/%d/thumbnail", srv.baseURL, created.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected inline thumbnail, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "image/png" || body != string(png) {
		t.Fatalf("unexpected inline thumbnail: type=%q len=%d", resp.Header.Get("Content-Type"), len(body))
	}

	resp, envelope = doJSON(t, srv.client, http.MethodGet, fmt.Sprintf("%s/api/v1/products/%d/thumbnail", srv.baseURL, created.ID+1000), nil, nil)
	if resp.StatusCode != http.StatusNotFound || envelope.Error == nil {
		t.Fatalf("expected missing product thumbnail to be NOT_FOUND, got %d", resp.StatusCode)
	}
}

func pngFixtureBytes() []byte {
	return append([]byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01,
	}, bytes.Repeat([]byte{0x22}, 1024)...)
}
