package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
)

// AuditFileName is the audit log written inside each .dynpop directory.
const AuditFileName = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
// It records parameters, never file contents or node lists.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	Scope      constants.Scope   `json:"scope"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// auditFile holds a mutex-protected file handle for writing audit entries.
type auditFile struct {
	mu   sync.Mutex
	file *os.File
}

// openAuditFile creates an auditFile writing to .dynpop/audit.jsonl under
// dir. Returns nil if the file cannot be created.
func openAuditFile(dir string, logger *slog.Logger) *auditFile {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, constants.ConfigDirName, AuditFileName)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		logger.Warn("cannot create audit log directory", "path", filepath.Dir(path), "error", err)
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		logger.Warn("cannot open audit log", "path", path, "error", err)
		return nil
	}

	return &auditFile{file: f}
}

// write appends a JSON-encoded entry as a single line. Safe to call on nil.
func (af *auditFile) write(entry AuditEntry) {
	if af == nil || af.file == nil {
		return
	}

	af.mu.Lock()
	defer af.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = af.file.Write(data)
}

// close closes the underlying file. Safe to call on nil.
func (af *auditFile) close() error {
	if af == nil || af.file == nil {
		return nil
	}

	af.mu.Lock()
	defer af.mu.Unlock()

	return af.file.Close()
}

// AuditLogger writes audit entries to JSONL files, routing to the local or
// global log by entry scope. It is safe for concurrent use. A nil
// AuditLogger is safe to use; all methods are no-ops on nil receiver.
type AuditLogger struct {
	local  *auditFile // <root>/.dynpop/audit.jsonl
	global *auditFile // ~/.dynpop/audit.jsonl
}

// NewAuditLogger opens localDir/.dynpop/audit.jsonl and
// globalDir/.dynpop/audit.jsonl. A log that cannot be opened is skipped
// with a warning; if both fail, NewAuditLogger returns nil.
func NewAuditLogger(localDir, globalDir string, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}

	local := openAuditFile(localDir, logger)
	var global *auditFile
	if globalDir != localDir {
		global = openAuditFile(globalDir, logger)
	} else {
		global = local
	}

	if local == nil && global == nil {
		return nil
	}
	return &AuditLogger{local: local, global: global}
}

// Log writes entry to the log matching its scope. An unknown or empty
// scope goes to the local log. Safe to call on nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	switch entry.Scope {
	case constants.ScopeGlobal:
		a.global.write(entry)
	default:
		a.local.write(entry)
	}
}

// Close closes both audit log files. Safe to call on nil receiver.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	err := a.local.close()
	if a.global != a.local {
		if gerr := a.global.close(); gerr != nil && err == nil {
			err = gerr
		}
	}
	return err
}

// Parameters whose values are logged as-is.
var safeValueParams = map[string]bool{
	"action":                   true,
	"threshold":                true,
	"probability_of_infection": true,
	"lifespan":                 true,
	"shelter":                  true,
	"vaccination":              true,
	"seed":                     true,
	"max_rounds":               true,
	"format":                   true,
	"record":                   true,
	"limit":                    true,
	"rounds":                   true,
	"final_graph":              true,
}

// Parameters that are logged as "(set)" because their values name files
// or runs on the user's machine.
var presenceOnlyParams = map[string]bool{
	"graph_file":  true,
	"export_path": true,
	"run_id":      true,
}

// sanitizeToolParams turns tool parameters into audit metadata. Nil and
// zero values are treated as unset; "initiators" is logged as a count.
// A "_param_count" key records how many parameters were set.
func sanitizeToolParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)
	set := 0
	for key, val := range params {
		val, ok := paramValue(val)
		if !ok {
			continue
		}
		set++

		switch {
		case key == "initiators":
			result[key] = fmt.Sprintf("%d", len(val.([]string)))
		case safeValueParams[key]:
			result[key] = fmt.Sprintf("%v", val)
		case presenceOnlyParams[key]:
			result[key] = "(set)"
		}
	}

	result["_param_count"] = fmt.Sprintf("%d", set)
	return result
}

// paramValue dereferences optional parameters and reports whether the
// parameter was set.
func paramValue(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case *float64:
		if x == nil {
			return nil, false
		}
		return *x, true
	case *int:
		if x == nil {
			return nil, false
		}
		return *x, true
	case *uint64:
		if x == nil {
			return nil, false
		}
		return *x, true
	case string:
		return x, x != ""
	case bool:
		return x, x
	case int:
		return x, x != 0
	case []string:
		return x, len(x) > 0
	}
	return v, true
}

// auditTool logs a tool invocation to the audit log with the given scope.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string, scope constants.Scope) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	if !scope.Valid() {
		scope = constants.ScopeLocal
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		Scope:      scope,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
