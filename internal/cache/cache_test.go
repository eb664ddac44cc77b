package cache

import (
	"testing"
	"time"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testInfo(size int64, mtime time.Time) fsio.FileInfo {
	return fsio.FileInfo{Size: size, ModTime: mtime}
}

func TestHashHex(t *testing.T) {
	sum := HashHex([]byte("hello world"))
	if len(sum) != 64 {
		t.Errorf("digest length = %d, want 64", len(sum))
	}
	if sum != HashHex([]byte("hello world")) {
		t.Error("digest is not deterministic")
	}
	if sum == HashHex([]byte("hello worlD")) {
		t.Error("different inputs produced the same digest")
	}
}

func TestDigestCachesByStat(t *testing.T) {
	c := openTestCache(t)
	info := testInfo(11, time.Now())

	first, err := c.Digest("requirements/REQ-001.md", info, []byte("hello world"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	// Same stat, different content: the cached digest wins, proving the
	// second call never hashed.
	second, err := c.Digest("requirements/REQ-001.md", info, []byte("xxxxxxxxxxx"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if second != first {
		t.Errorf("cached digest = %s, want %s", second, first)
	}
}

func TestDigestRecomputesWhenStale(t *testing.T) {
	c := openTestCache(t)
	mtime := time.Now()

	first, err := c.Digest("requirements/REQ-001.md", testInfo(5, mtime), []byte("alpha"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	second, err := c.Digest("requirements/REQ-001.md", testInfo(4, mtime.Add(time.Second)), []byte("beta"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if second == first {
		t.Error("stale entry was not recomputed")
	}
	if second != HashHex([]byte("beta")) {
		t.Errorf("recomputed digest = %s, want digest of new content", second)
	}
}

func TestStoreAndLookup(t *testing.T) {
	c := openTestCache(t)
	info := testInfo(42, time.Now())
	a := &artifact.Artifact{
		ID:       "REQ-001",
		Type:     artifact.TypeRequirement,
		Title:    "Login audit trail",
		Status:   "approved",
		Revision: "02",
	}

	if err := c.Store("requirements/REQ-001.md", info, "abc123", a); err != nil {
		t.Fatalf("Store: %v", err)
	}

	entry, err := c.Lookup("requirements/REQ-001.md", info)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry == nil {
		t.Fatal("Lookup returned nil for a fresh entry")
	}
	if entry.Digest != "abc123" {
		t.Errorf("Digest = %s, want abc123", entry.Digest)
	}
	if entry.Artifact == nil {
		t.Fatal("Artifact is nil")
	}
	if entry.Artifact.ID != "REQ-001" || entry.Artifact.Title != "Login audit trail" {
		t.Errorf("Artifact = %+v", entry.Artifact)
	}
	if entry.Artifact.Revision != "02" {
		t.Errorf("Revision = %s, want 02", entry.Artifact.Revision)
	}
}

func TestLookupMisses(t *testing.T) {
	c := openTestCache(t)
	info := testInfo(42, time.Now())

	entry, err := c.Lookup("requirements/REQ-404.md", info)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry != nil {
		t.Error("Lookup hit for a path never stored")
	}

	if err := c.Store("requirements/REQ-001.md", info, "abc123", nil); err != nil {
		t.Fatalf("Store: %v", err)
	}
	entry, err = c.Lookup("requirements/REQ-001.md", testInfo(42, info.ModTime.Add(time.Minute)))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry != nil {
		t.Error("Lookup hit for a stale entry")
	}
}

func TestDigestOnlyEntryHasNoArtifact(t *testing.T) {
	c := openTestCache(t)
	info := testInfo(5, time.Now())

	if _, err := c.Digest("requirements/REQ-001.md", info, []byte("alpha")); err != nil {
		t.Fatalf("Digest: %v", err)
	}
	entry, err := c.Lookup("requirements/REQ-001.md", info)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry == nil {
		t.Fatal("Lookup returned nil")
	}
	if entry.Artifact != nil {
		t.Errorf("digest-only entry carries artifact %+v", entry.Artifact)
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := openTestCache(t)
	info := testInfo(5, time.Now())

	for _, path := range []string{"requirements/REQ-001.md", "testcases/TC-001.md"} {
		if err := c.Store(path, info, "d", nil); err != nil {
			t.Fatalf("Store %s: %v", path, err)
		}
	}

	if err := c.Remove("requirements/REQ-001.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	count, err := c.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count after Remove = %d, want 1", count)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err = c.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count after Clear = %d, want 0", count)
	}
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	info := testInfo(5, time.Now())

	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Store("requirements/REQ-001.md", info, "abc", nil); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()

	entry, err := c.Lookup("requirements/REQ-001.md", info)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry == nil || entry.Digest != "abc" {
		t.Errorf("entry after reopen = %+v, want digest abc", entry)
	}
}
