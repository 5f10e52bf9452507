package cache

import (
	"testing"
	"time"
)

func TestGetInsert(t *testing.T) {
	c := NewLRU[string, int](4, 0)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache returned a value")
	}

	c.Insert("a", 1)
	c.Insert("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}

	c.Insert("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get(a) after overwrite = %d, want 10", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCapacityEvictsLRU(t *testing.T) {
	c := NewLRU[string, int](3, 0)
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Insert("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Insert("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q evicted unexpectedly", key)
		}
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewLRU[string, int](8, 50*time.Millisecond)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Insert("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("fresh entry missing")
	}

	now = now.Add(100 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, Len() = %d", c.Len())
	}
}

func TestRange(t *testing.T) {
	c := NewLRU[int, string](8, 0)
	c.Insert(1, "one")
	c.Insert(2, "two")
	c.Insert(3, "three")

	seen := map[int]string{}
	c.Range(func(k int, v string) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 3 || seen[2] != "two" {
		t.Errorf("Range saw %v", seen)
	}

	// Early termination.
	count := 0
	c.Range(func(int, string) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Range after stop visited %d entries, want 1", count)
	}
}

func TestRemove(t *testing.T) {
	c := NewLRU[string, int](4, 0)
	c.Insert("a", 1)
	c.Remove("a")
	c.Remove("never-there")

	if _, ok := c.Get("a"); ok {
		t.Error("removed entry still present")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
