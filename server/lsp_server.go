package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/lexcodex/lplsense/framework/index"
	"github.com/lexcodex/lplsense/framework/lpl"
)

// Commands accepted by workspace/executeCommand.
const (
	CommandRestrictionReport = "lpl.restrictionReport"
	CommandValidateImports   = "lpl.validateImports"
)

const diagnosticSource = "lplsense"

// Options configures an LSPServer.
type Options struct {
	Workspace  string
	DeepDetail bool
	Version    string
	// Manager must be keyed by document URI; see DocumentKey.
	Manager *index.IndexManager
	Logger  *zap.Logger
}

// DocumentKey is the registry key of a file on disk.
func DocumentKey(path string) string {
	return string(uri.File(path))
}

// LSPServer answers LSP requests from the registry.
type LSPServer struct {
	manager    *index.IndexManager
	registry   *lpl.Registry
	docs       *documentStore
	logger     *zap.Logger
	deepDetail bool
	version    string

	// linkMu orders buffer links so the newest text is linked last.
	linkMu sync.Mutex

	mu        sync.Mutex
	shutdown  bool
	published map[protocol.DocumentURI]bool
	exit      chan struct{}
	exitOnce  sync.Once
}

// NewLSPServer builds a server instance.
func NewLSPServer(opts Options) *LSPServer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	manager := opts.Manager
	if manager == nil {
		manager = index.NewIndexManager(nil, nil, index.IndexConfig{
			WorkspacePath: opts.Workspace,
			DocumentKey:   DocumentKey,
		}, logger)
	} else if opts.Workspace != "" {
		manager.SetWorkspace(opts.Workspace)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s := &LSPServer{
		manager:    manager,
		registry:   manager.Registry(),
		docs:       newDocumentStore(),
		logger:     logger,
		deepDetail: opts.DeepDetail,
		version:    version,
		published:  make(map[protocol.DocumentURI]bool),
		exit:       make(chan struct{}),
	}
	// Open buffers are authoritative; disk scans skip them.
	manager.SetPathFilter(func(path string, isDir bool) bool {
		return isDir || !s.docs.isOpen(protocol.DocumentURI(DocumentKey(path)))
	})
	return s
}

// Serve runs the JSON-RPC loop on rwc until the client exits or
// disconnects, or ctx is done.
func (s *LSPServer) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	defer conn.Close()
	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-s.exit:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StdioConn joins stdin and stdout into one stream.
func StdioConn() io.ReadWriteCloser {
	return &stdioReadWriteCloser{reader: os.Stdin, writer: os.Stdout}
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}

func decode(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *LSPServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.logger.Debug("lsp request", zap.String("method", req.Method), zap.Bool("notification", req.Notif))
	switch req.Method {
	case "initialize":
		var params protocol.InitializeParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.initialize(params), nil
	case "initialized":
		go s.indexWorkspace(ctx, conn)
		return nil, nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case "exit":
		s.exitOnce.Do(func() { close(s.exit) })
		return nil, nil
	case "textDocument/didOpen":
		var params protocol.DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.docs.open(params.TextDocument)
		s.reindex(ctx, conn, params.TextDocument.URI)
		return nil, nil
	case "textDocument/didChange":
		var params protocol.DidChangeTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.docs.change(params.TextDocument, params.ContentChanges)
		s.reindex(ctx, conn, params.TextDocument.URI)
		return nil, nil
	case "textDocument/didSave":
		var params protocol.DidSaveTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		if params.Text != "" {
			id := protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: params.TextDocument}
			if prev, ok := s.docs.get(params.TextDocument.URI); ok {
				id.Version = prev.Version
			}
			s.docs.change(id, []protocol.TextDocumentContentChangeEvent{{Text: params.Text}})
			s.reindex(ctx, conn, params.TextDocument.URI)
			return nil, nil
		}
		s.publishDiagnostics(ctx, conn)
		return nil, nil
	case "textDocument/didClose":
		var params protocol.DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.didClose(ctx, conn, params.TextDocument.URI)
		return nil, nil
	case "textDocument/documentSymbol":
		var params protocol.DocumentSymbolParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.documentSymbols(params.TextDocument.URI), nil
	case "textDocument/definition":
		var params protocol.DefinitionParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.definition(params.TextDocumentPositionParams), nil
	case "textDocument/hover":
		var params protocol.HoverParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.hover(params.TextDocumentPositionParams), nil
	case "workspace/executeCommand":
		var params protocol.ExecuteCommandParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.executeCommand(params)
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
}

func (s *LSPServer) initialize(params protocol.InitializeParams) *protocol.InitializeResult {
	if s.manager.Workspace() == "" && isFileURI(params.RootURI) {
		s.manager.SetWorkspace(uri.URI(params.RootURI).Filename())
	}
	workspace := s.manager.Workspace()
	s.logger.Info("lsp initialize", zap.String("workspace", workspace))
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync:       protocol.TextDocumentSyncKindFull,
			DocumentSymbolProvider: true,
			DefinitionProvider:     true,
			HoverProvider:          true,
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{CommandRestrictionReport, CommandValidateImports},
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: "lplsense", Version: s.version},
	}
}

func isFileURI(u protocol.DocumentURI) bool {
	return strings.HasPrefix(string(u), "file://")
}

func (s *LSPServer) indexWorkspace(ctx context.Context, conn *jsonrpc2.Conn) {
	if s.manager.Workspace() == "" {
		return
	}
	res, err := s.manager.IndexWorkspace(ctx)
	if err != nil {
		s.logger.Warn("workspace index failed", zap.Error(err))
		return
	}
	// A document opened while the scan read it from disk is relinked
	// from its buffer.
	for _, u := range s.docs.uris() {
		if err := s.linkBuffer(ctx, u); err != nil {
			s.logger.Warn("relink open document failed", zap.String("uri", string(u)), zap.Error(err))
		}
	}
	s.logger.Info("workspace ready", zap.Int("files", res.Indexed))
	s.publishDiagnostics(ctx, conn)
}

func (s *LSPServer) reindex(ctx context.Context, conn *jsonrpc2.Conn, u protocol.DocumentURI) {
	if err := s.linkBuffer(ctx, u); err != nil {
		s.logger.Warn("reindex failed", zap.String("uri", string(u)), zap.Error(err))
		return
	}
	s.publishDiagnostics(ctx, conn)
}

// linkBuffer indexes the current text of an open document.
func (s *LSPServer) linkBuffer(ctx context.Context, u protocol.DocumentURI) error {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	doc, ok := s.docs.get(u)
	if !ok {
		return nil
	}
	_, err := s.manager.IndexContent(ctx, string(u), doc.Text)
	return err
}

// didClose falls back to the saved file so unsaved edits do not linger.
func (s *LSPServer) didClose(ctx context.Context, conn *jsonrpc2.Conn, u protocol.DocumentURI) {
	s.docs.close(u)
	if isFileURI(u) {
		path := uri.URI(u).Filename()
		if _, err := os.Stat(path); err == nil {
			if _, err := s.manager.IndexFile(ctx, path); err != nil {
				s.logger.Warn("reload on close failed", zap.String("path", path), zap.Error(err))
			}
			s.publishDiagnostics(ctx, conn)
			return
		}
	}
	if err := s.manager.Remove(string(u)); err != nil {
		s.logger.Warn("remove failed", zap.String("uri", string(u)), zap.Error(err))
	}
	s.publishDiagnostics(ctx, conn)
}

// publishDiagnostics sends the current diagnostics of every document and
// clears documents that no longer have any.
func (s *LSPServer) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn) {
	byURI := make(map[protocol.DocumentURI][]protocol.Diagnostic)
	for _, d := range s.registry.Validate() {
		u := protocol.DocumentURI(d.File)
		byURI[u] = append(byURI[u], toDiagnostic(d))
	}
	s.mu.Lock()
	var clear []protocol.DocumentURI
	for u := range s.published {
		if _, ok := byURI[u]; !ok {
			clear = append(clear, u)
			delete(s.published, u)
		}
	}
	for u := range byURI {
		s.published[u] = true
	}
	s.mu.Unlock()
	for _, u := range clear {
		byURI[u] = []protocol.Diagnostic{}
	}
	for u, diags := range byURI {
		params := &protocol.PublishDiagnosticsParams{URI: u, Diagnostics: diags}
		if doc, ok := s.docs.get(u); ok && doc.Version > 0 {
			params.Version = uint32(doc.Version)
		}
		if err := conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
			s.logger.Debug("publish diagnostics failed", zap.Error(err))
		}
	}
}

func (s *LSPServer) lines(u protocol.DocumentURI) ([]string, bool) {
	if doc, ok := s.docs.get(u); ok {
		return doc.Lines(), true
	}
	if doc, ok := s.registry.Document(string(u)); ok {
		return doc.Lines, true
	}
	return nil, false
}

func (s *LSPServer) documentSymbols(u protocol.DocumentURI) []protocol.SymbolInformation {
	outline := s.registry.Outline(string(u), s.deepDetail)
	out := make([]protocol.SymbolInformation, 0, len(outline))
	for _, sym := range outline {
		out = append(out, protocol.SymbolInformation{
			Name:          sym.Name,
			Kind:          toSymbolKind(sym.Kind),
			Location:      protocol.Location{URI: u, Range: toRange(sym.Range)},
			ContainerName: sym.Container,
		})
	}
	return out
}

func (s *LSPServer) resolve(params protocol.TextDocumentPositionParams) lpl.Resolution {
	lines, ok := s.lines(params.TextDocument.URI)
	if !ok {
		return lpl.Resolution{}
	}
	return s.registry.Resolve(string(params.TextDocument.URI), lines, lpl.Position{
		Line:      int(params.Position.Line),
		Character: int(params.Position.Character),
	})
}

func (s *LSPServer) definition(params protocol.TextDocumentPositionParams) []protocol.Location {
	res := s.resolve(params)
	locations := make([]protocol.Location, 0, len(res.Definitions))
	for _, def := range res.Definitions {
		locations = append(locations, protocol.Location{
			URI:   protocol.DocumentURI(def.File),
			Range: toRange(def.NameRange()),
		})
	}
	return locations
}

func (s *LSPServer) hover(params protocol.TextDocumentPositionParams) *protocol.Hover {
	res := s.resolve(params)
	if !res.Found() || res.HoverText == "" {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.PlainText, Value: res.HoverText},
	}
}

// DiagnosticResult is the JSON shape of lpl.validateImports.
type DiagnosticResult struct {
	URI      string `json:"uri"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Severity int    `json:"severity"`
}

func (s *LSPServer) executeCommand(params protocol.ExecuteCommandParams) (interface{}, error) {
	switch params.Command {
	case CommandRestrictionReport:
		if len(params.Arguments) == 0 {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "class name required"}
		}
		name, ok := params.Arguments[0].(string)
		if !ok {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "class name must be a string"}
		}
		rep, err := s.registry.RestrictionReport(name)
		if errors.Is(err, lpl.ErrNoClass) {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := rep.WriteCSV(&buf); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		return buf.String(), nil
	case CommandValidateImports:
		diags := s.registry.ValidateImports()
		out := make([]DiagnosticResult, 0, len(diags))
		for _, d := range diags {
			out = append(out, DiagnosticResult{
				URI:      d.File,
				Line:     d.Range.Start.Line,
				Message:  d.Message,
				Severity: int(d.Severity),
			})
		}
		return out, nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown command " + params.Command}
	}
}

var symbolKinds = map[lpl.SymbolKind]protocol.SymbolKind{
	lpl.KindClass:      protocol.SymbolKindClass,
	lpl.KindSection:    protocol.SymbolKindNamespace,
	lpl.KindField:      protocol.SymbolKindField,
	lpl.KindProperty:   protocol.SymbolKindProperty,
	lpl.KindVariable:   protocol.SymbolKindVariable,
	lpl.KindBoolean:    protocol.SymbolKindBoolean,
	lpl.KindMethod:     protocol.SymbolKindMethod,
	lpl.KindFunction:   protocol.SymbolKindFunction,
	lpl.KindInterface:  protocol.SymbolKindInterface,
	lpl.KindEnum:       protocol.SymbolKindEnum,
	lpl.KindEnumMember: protocol.SymbolKindEnumMember,
	lpl.KindKey:        protocol.SymbolKindKey,
}

func toSymbolKind(k lpl.SymbolKind) protocol.SymbolKind {
	if kind, ok := symbolKinds[k]; ok {
		return kind
	}
	return protocol.SymbolKindVariable
}

func toRange(r lpl.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(r.Start.Line), Character: uint32(r.Start.Character)},
		End:   protocol.Position{Line: uint32(r.End.Line), Character: uint32(r.End.Character)},
	}
}

func toDiagnostic(d lpl.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    toRange(d.Range),
		Severity: protocol.DiagnosticSeverity(d.Severity),
		Source:   diagnosticSource,
		Message:  d.Message,
	}
}
