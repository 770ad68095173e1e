// Package mcp provides an MCP (Model Context Protocol) server that runs
// dynpop simulations for AI clients.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/config"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/metrics"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/pathutil"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/ratelimit"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/store"
)

// Server wraps the MCP SDK server and provides the dynpop tools.
type Server struct {
	server       *sdk.Server
	history      store.HistoryStore
	historyKind  string
	settings     *config.DynpopConfig
	root         string
	allowedDirs  []string
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	metrics      *metrics.Registry
	logger       *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "dynpop")
	Version string // Server version
	Root    string // Directory relative graph and export paths resolve against

	// AllowedDirs confines client file paths. Defaults to Root and ~/.dynpop.
	AllowedDirs []string

	// HomeDir holds the global .dynpop directory for the audit log.
	// Defaults to the user's home directory.
	HomeDir string

	// HistoryPath is the SQLite run history. Empty keeps history in memory
	// for the lifetime of the server.
	HistoryPath string

	// Settings supplies defaults for parameters a client leaves unset.
	Settings *config.DynpopConfig

	Logger  *slog.Logger
	Metrics *metrics.Registry
}

// NewServer creates a new MCP server with the dynpop tools registered.
func NewServer(cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	allowed := cfg.AllowedDirs
	if len(allowed) == 0 {
		if allowed, err = pathutil.DefaultAllowedDirs(root); err != nil {
			return nil, err
		}
	}

	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	var history store.HistoryStore
	kind := "memory"
	if cfg.HistoryPath != "" {
		sqliteStore, err := store.NewSQLiteHistoryStore(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		history = sqliteStore
		kind = "sqlite"
	} else {
		history = store.NewInMemoryHistoryStore()
	}

	homeDir := cfg.HomeDir
	if homeDir == "" {
		homeDir, _ = os.UserHomeDir()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		history:      history,
		historyKind:  kind,
		settings:     settings,
		root:         root,
		allowedDirs:  allowed,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(root, homeDir, logger),
		metrics:      cfg.Metrics,
		logger:       logger,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server started", "root", s.root, "history", s.historyKind)
	err := s.server.Run(ctx, &sdk.StdioTransport{})

	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close closes the history store and audit logs. Later calls return the
// result of the first.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.history.Close()
		if err := s.auditLogger.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
