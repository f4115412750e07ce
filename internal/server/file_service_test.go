package server

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"pixvault/internal/blobstore"
	"pixvault/internal/store"
)

func newTestFileService(t *testing.T) (*FileService, *blobstore.LocalCAS) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "svc-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cas, err := blobstore.NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new cas: %v", err)
	}
	return NewFileService(st, cas), cas
}

func TestFileServiceStoreOpenRoundTrip(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	stored, err := svc.Store(ctx, strings.NewReader("hello bytes"), StoreFileInput{
		Name:        "greeting.txt",
		ContentType: "text/plain; charset=utf-8",
		OwnerID:     "user-1",
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if stored.SizeBytes != 11 {
		t.Fatalf("expected size 11, got %d", stored.SizeBytes)
	}
	if stored.ContentType != "text/plain" {
		t.Fatalf("expected normalized content type, got %q", stored.ContentType)
	}
	if stored.SHA256 == "" || stored.BlobKey == "" {
		t.Fatalf("expected digest and blob key, got %+v", stored)
	}

	content, err := svc.Open(ctx, stored.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer content.Reader.Close()
	data, err := io.ReadAll(content.Reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello bytes" {
		t.Fatalf("expected original bytes, got %q", data)
	}
}

func TestFileServiceInfoUnknownID(t *testing.T) {
	svc, _ := newTestFileService(t)

	_, err := svc.Info(context.Background(), "fl-zzzzzzzzzz")
	if httpStatusFromError(err) != 404 {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.Info(context.Background(), "not-an-id")
	if httpStatusFromError(err) != 400 {
		t.Fatalf("expected bad request for invalid id, got %v", err)
	}
}

func TestFileServiceDeleteKeepsSharedBlob(t *testing.T) {
	svc, cas := newTestFileService(t)
	ctx := context.Background()

	first, err := svc.Store(ctx, strings.NewReader("shared-content"), StoreFileInput{Name: "a.bin"})
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := svc.Store(ctx, strings.NewReader("shared-content"), StoreFileInput{Name: "b.bin"})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if first.BlobKey != second.BlobKey {
		t.Fatalf("expected identical content to share a blob key")
	}

	deleted, err := svc.Delete(ctx, first.ID)
	if err != nil || !deleted {
		t.Fatalf("delete first: %v (deleted=%v)", err, deleted)
	}

	// The second row still references the bytes.
	rc, err := cas.Open(ctx, second.BlobKey)
	if err != nil {
		t.Fatalf("blob should survive while referenced: %v", err)
	}
	_ = rc.Close()

	deleted, err = svc.Delete(ctx, second.ID)
	if err != nil || !deleted {
		t.Fatalf("delete second: %v (deleted=%v)", err, deleted)
	}
	if _, err := cas.Open(ctx, second.BlobKey); err == nil {
		t.Fatal("blob should be removed once unreferenced")
	}

	// Absence is stable.
	deleted, err = svc.Delete(ctx, second.ID)
	if err != nil || deleted {
		t.Fatalf("repeat delete should report false, got %v (err %v)", deleted, err)
	}
}

func TestFileServiceDefaultsNameAndContentType(t *testing.T) {
	svc, _ := newTestFileService(t)

	stored, err := svc.Store(context.Background(), strings.NewReader("x"), StoreFileInput{})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if stored.Name != stored.ID {
		t.Fatalf("expected name defaulted to id, got %q", stored.Name)
	}
	if stored.ContentType != "application/octet-stream" {
		t.Fatalf("expected fallback content type, got %q", stored.ContentType)
	}
}
