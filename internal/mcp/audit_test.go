package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/logging"
)

func auditPath(dir string) string {
	return filepath.Join(dir, constants.ConfigDirName, AuditFileName)
}

func readAuditEntries(t *testing.T, path string) []AuditEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parsing audit entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestAuditLogger_NilSafety(t *testing.T) {
	var logger *AuditLogger
	logger.Log(AuditEntry{Tool: "test"})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on nil logger returned error: %v", err)
	}
}

func TestAuditLogger_RoutesByScope(t *testing.T) {
	localDir := t.TempDir()
	globalDir := t.TempDir()
	logger := NewAuditLogger(localDir, globalDir, logging.Discard())
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	defer logger.Close()

	logger.Log(AuditEntry{Tool: "dynpop_graph_info", Scope: constants.ScopeLocal, Status: "success"})
	logger.Log(AuditEntry{Tool: "dynpop_runs", Scope: constants.ScopeGlobal, Status: "success"})
	logger.Log(AuditEntry{Tool: "unscoped", Status: "error", Error: "boom"})

	local := readAuditEntries(t, auditPath(localDir))
	if len(local) != 2 || local[0].Tool != "dynpop_graph_info" || local[1].Tool != "unscoped" {
		t.Errorf("local entries = %+v", local)
	}
	if local[1].Error != "boom" {
		t.Errorf("error entry = %+v", local[1])
	}

	global := readAuditEntries(t, auditPath(globalDir))
	if len(global) != 1 || global[0].Tool != "dynpop_runs" {
		t.Errorf("global entries = %+v", global)
	}
}

func TestAuditLogger_SameDirectory(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir, dir, logging.Discard())
	logger.Log(AuditEntry{Tool: "a", Scope: constants.ScopeLocal})
	logger.Log(AuditEntry{Tool: "b", Scope: constants.ScopeGlobal})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	if entries := readAuditEntries(t, auditPath(dir)); len(entries) != 2 {
		t.Errorf("got %d entries, want both scopes in one file", len(entries))
	}
}

func TestAuditLogger_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir, "", logging.Discard())
	defer logger.Close()
	logger.Log(AuditEntry{Tool: "test"})

	info, err := os.Stat(auditPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("audit log permissions = %o, want 600", perm)
	}
}

func TestAuditLogger_BadPaths(t *testing.T) {
	dir := t.TempDir()
	block1 := filepath.Join(dir, "block1")
	block2 := filepath.Join(dir, "block2")
	for _, p := range []string{block1, block2} {
		if err := os.WriteFile(p, []byte("file"), 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	goodDir := t.TempDir()
	logger := NewAuditLogger(block1, goodDir, logging.Discard())
	if logger == nil {
		t.Fatal("expected non-nil logger when one path is valid")
	}
	logger.Log(AuditEntry{Tool: "lost", Scope: constants.ScopeLocal})
	logger.Log(AuditEntry{Tool: "kept", Scope: constants.ScopeGlobal})
	logger.Close()
	if entries := readAuditEntries(t, auditPath(goodDir)); len(entries) != 1 {
		t.Errorf("got %d entries in the working log", len(entries))
	}

	if logger := NewAuditLogger(block1, block2, logging.Discard()); logger != nil {
		logger.Close()
		t.Error("expected nil logger when both paths are bad")
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir, "", logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(AuditEntry{Tool: "dynpop_simulate", Timestamp: time.Now()})
		}()
	}
	wg.Wait()
	logger.Close()

	if entries := readAuditEntries(t, auditPath(dir)); len(entries) != 20 {
		t.Errorf("got %d entries, want 20", len(entries))
	}
}

func TestSanitizeToolParams(t *testing.T) {
	params := map[string]interface{}{
		"graph_file":  "/home/someone/net.gml",
		"action":      "covid",
		"initiators":  []string{"1", "2", "3"},
		"threshold":   (*float64)(nil),
		"lifespan":    ptr(5),
		"seed":        ptr(uint64(7)),
		"record":      false,
		"export_path": "",
		"rounds":      true,
		"unknown":     "dropped",
	}

	got := sanitizeToolParams(params)
	want := map[string]string{
		"graph_file":   "(set)",
		"action":       "covid",
		"initiators":   "3",
		"lifespan":     "5",
		"seed":         "7",
		"rounds":       "true",
		"_param_count": "7",
	}
	if len(got) != len(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	if sanitizeToolParams(nil) != nil {
		t.Error("nil params should give nil")
	}
}

func TestAuditTool_Handlers(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()

	if _, _, err := env.server.handleDynpopGraphInfo(ctx, nil, GraphInfoInput{GraphFile: "pair.gml", Format: "dot"}); err != nil {
		t.Fatal(err)
	}
	args := epidemicInput()
	args.Record = true
	if _, _, err := env.server.handleDynpopSimulate(ctx, nil, args); err != nil {
		t.Fatal(err)
	}
	env.server.Close()

	local := readAuditEntries(t, auditPath(env.root))
	if len(local) != 1 || local[0].Tool != "dynpop_graph_info" || local[0].Status != "success" {
		t.Fatalf("local entries = %+v", local)
	}
	if local[0].Params["graph_file"] != "(set)" || local[0].Params["format"] != "dot" {
		t.Errorf("params = %v", local[0].Params)
	}

	global := readAuditEntries(t, auditPath(env.home))
	if len(global) != 1 || global[0].Tool != "dynpop_simulate" || global[0].Scope != constants.ScopeGlobal {
		t.Fatalf("global entries = %+v", global)
	}
	if global[0].Params["record"] != "true" || global[0].Params["initiators"] != "1" {
		t.Errorf("params = %v", global[0].Params)
	}
}
