package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestLocalCASPutOpenDelete(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	first, err := cas.Put(context.Background(), bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if first.SHA256 == "" || first.Key == "" {
		t.Fatalf("unexpected put result: %#v", first)
	}
	if first.SizeBytes != 5 {
		t.Fatalf("expected size 5, got %d", first.SizeBytes)
	}

	second, err := cas.Put(context.Background(), bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first.Key != second.Key || first.SHA256 != second.SHA256 {
		t.Fatalf("expected dedupe keys/digests to match: first=%#v second=%#v", first, second)
	}

	rc, err := cas.Open(context.Background(), first.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected hello, got %q", string(data))
	}

	if err := cas.Delete(context.Background(), first.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cas.Delete(context.Background(), first.Key); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
	if _, err := cas.Open(context.Background(), first.Key); err == nil {
		t.Fatal("expected open after delete to fail")
	}
}

func TestLocalCASConcurrentReaders(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	payload := strings.Repeat("0123456789", 4096)
	res, err := cas.Put(context.Background(), strings.NewReader(payload))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := cas.Open(context.Background(), res.Key)
			if err != nil {
				errs <- err
				return
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				errs <- err
				return
			}
			if string(data) != payload {
				errs <- io.ErrUnexpectedEOF
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent read: %v", err)
	}
}

func TestLocalCASRejectsEscapingKeys(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	for _, key := range []string{"", "/etc/passwd", "../outside", "sha256/../../x"} {
		if _, err := cas.Open(context.Background(), key); err == nil {
			t.Fatalf("expected open %q to fail", key)
		}
		if err := cas.Delete(context.Background(), key); err == nil {
			t.Fatalf("expected delete %q to fail", key)
		}
	}
}

func TestLocalCASHealthy(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	if err := cas.Healthy(context.Background()); err != nil {
		t.Fatalf("healthy: %v", err)
	}
}
