package cache

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"testing"
	"time"
)

func TestStorePutAndGet(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{StoreName: "app-v1", Path: "/index.html"}

	modTime := time.Now().Add(-time.Hour).UTC()
	payload := []byte("<!doctype html>")
	meta := Metadata{
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Headers:     map[string][]string{"Cache-Control": {"no-cache"}, "Link": {"<a>; rel=preload", "<b>; rel=preload"}},
	}
	if _, err := store.Put(context.Background(), locator, bytes.NewReader(payload), PutOptions{Meta: meta, ModTime: modTime}); err != nil {
		t.Fatalf("put error: %v", err)
	}

	result, err := store.Get(context.Background(), locator)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		t.Fatalf("read cached body error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("cached payload mismatch: %s", string(body))
	}
	if result.Entry.SizeBytes != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", result.Entry.SizeBytes)
	}
	if !result.Entry.ModTime.Equal(modTime) {
		t.Fatalf("modtime mismatch: expected %v got %v", modTime, result.Entry.ModTime)
	}
	if result.Entry.Meta.StatusCode != 200 {
		t.Fatalf("status mismatch: %d", result.Entry.Meta.StatusCode)
	}
	if result.Entry.Meta.ContentType != meta.ContentType {
		t.Fatalf("content type mismatch: %s", result.Entry.Meta.ContentType)
	}
	if got := result.Entry.Meta.Headers["Cache-Control"]; len(got) != 1 || got[0] != "no-cache" {
		t.Fatalf("headers mismatch: %v", result.Entry.Meta.Headers)
	}
	if got := result.Entry.Meta.Headers["Link"]; len(got) != 2 {
		t.Fatalf("repeated header values should survive the roundtrip: %v", got)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), Locator{StoreName: "app-v1", Path: "/missing"})
	if err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{StoreName: "app-v1", Path: "/cache/remove"}
	if _, err := store.Put(context.Background(), locator, bytes.NewReader([]byte("data")), PutOptions{}); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := store.Remove(context.Background(), locator); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := store.Get(context.Background(), locator); err == nil || err != ErrNotFound {
		t.Fatalf("expected not found after remove, got %v", err)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{StoreName: "app-v1", Path: "/assets"}

	fs, ok := store.(*fileStore)
	if !ok {
		t.Fatalf("unexpected store type %T", store)
	}

	filePath, err := fs.entryPath(locator)
	if err != nil {
		t.Fatalf("path error: %v", err)
	}
	if err := os.MkdirAll(filePath, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	if _, err := store.Get(context.Background(), locator); err == nil || err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestStoreKeepsOverlappingPathsDistinct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// 根路径、同名前缀与父子路径都必须各占一个条目
	paths := []string{"/", "/root", "/a", "/a/b"}
	for _, p := range paths {
		locator := Locator{StoreName: "app-v1", Path: p}
		if _, err := store.Put(ctx, locator, bytes.NewReader([]byte("body:"+p)), PutOptions{}); err != nil {
			t.Fatalf("put %s error: %v", p, err)
		}
	}

	count, err := store.CountEntries(ctx, "app-v1")
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != len(paths) {
		t.Fatalf("expected %d entries, got %d", len(paths), count)
	}

	for _, p := range paths {
		result, err := store.Get(ctx, Locator{StoreName: "app-v1", Path: p})
		if err != nil {
			t.Fatalf("get %s error: %v", p, err)
		}
		body, _ := io.ReadAll(result.Reader)
		result.Reader.Close()
		if string(body) != "body:"+p {
			t.Fatalf("entry %s returned wrong body: %s", p, string(body))
		}
	}
}

func TestStoreListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"app-v1", "app-v2", "other-v1"} {
		locator := Locator{StoreName: name, Path: "/"}
		if _, err := store.Put(ctx, locator, bytes.NewReader([]byte(name)), PutOptions{}); err != nil {
			t.Fatalf("put error: %v", err)
		}
	}

	names, err := store.ListStores(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	sort.Strings(names)
	want := []string{"app-v1", "app-v2", "other-v1"}
	if len(names) != len(want) {
		t.Fatalf("expected %v stores, got %v", want, names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("expected %v stores, got %v", want, names)
		}
	}

	if err := store.DeleteStore(ctx, "app-v1"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	// 重复删除应保持幂等
	if err := store.DeleteStore(ctx, "app-v1"); err != nil {
		t.Fatalf("second delete error: %v", err)
	}

	names, err = store.ListStores(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	for _, name := range names {
		if name == "app-v1" {
			t.Fatalf("expected app-v1 to be deleted, got %v", names)
		}
	}
}

func TestStoreCountEntriesIgnoresSidecars(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	paths := []string{"/", "/index.html", "/assets/app.js"}
	for _, p := range paths {
		locator := Locator{StoreName: "app-v1", Path: p}
		if _, err := store.Put(ctx, locator, bytes.NewReader([]byte(p)), PutOptions{Meta: Metadata{StatusCode: 200}}); err != nil {
			t.Fatalf("put error: %v", err)
		}
	}

	count, err := store.CountEntries(ctx, "app-v1")
	if err != nil {
		t.Fatalf("count error: %v", err)
	}
	if count != len(paths) {
		t.Fatalf("expected %d entries, got %d", len(paths), count)
	}

	count, err = store.CountEntries(ctx, "app-v9")
	if err != nil {
		t.Fatalf("count missing store error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 entries for missing store, got %d", count)
	}
}

func TestStoreRejectsInvalidStoreName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if err := store.DeleteStore(ctx, name); err == nil {
			t.Fatalf("expected error for store name %q", name)
		}
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
