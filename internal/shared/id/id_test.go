package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
	if id1.Compare(id2) >= 0 {
		t.Error("IDs from one generator should be increasing")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestTypedIDs(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		prefix string
	}{
		{"tab", NewTabID().String(), TabPrefix},
		{"history", NewHistoryID().String(), HistoryPrefix},
		{"download", NewDownloadID().String(), DownloadPrefix},
		{"shortcut", NewShortcutID().String(), ShortcutPrefix},
		{"request", NewRequestID().String(), RequestPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.value, tt.prefix+"_") {
				t.Errorf("ID should start with '%s_', got: %s", tt.prefix, tt.value)
			}
			if !HasPrefix(tt.value, tt.prefix) {
				t.Errorf("HasPrefix(%q, %q) = false", tt.value, tt.prefix)
			}
		})
	}
}

func TestHasPrefixRejectsMalformed(t *testing.T) {
	cases := []string{"", "tab_", "tab_notaulid", "hist_" + NewGenerator().GenerateString(), "tab"}
	for _, c := range cases {
		if HasPrefix(c, TabPrefix) {
			t.Errorf("HasPrefix(%q) should be false", c)
		}
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	tabID := NewTabID()

	ts, err := Timestamp(tabID.String())
	if err != nil {
		t.Fatalf("Timestamp returned error: %v", err)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("timestamp %v out of range", ts)
	}

	if _, err := Timestamp("tab_garbage"); err == nil {
		t.Error("expected error for malformed ID")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	const workers = 8
	const perWorker = 200

	var (
		mu   sync.Mutex
		seen = make(map[TabID]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := NewTabID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d unique IDs, got %d", workers*perWorker, len(seen))
	}
}
