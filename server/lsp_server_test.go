package server

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

const targetText = `Target is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
        c is Alpha 10
        note is Alpha 40 // @Import=Exclude`

const importerText = `Importer is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
    Actions
        CreateSingleTarget is an Action
            Action Rules
                a = b
                invoke Import Target`

type lspClient struct {
	conn  *jsonrpc2.Conn
	diags chan protocol.PublishDiagnosticsParams
}

func startServer(t *testing.T, opts Options) *lspClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	srv := NewLSPServer(opts)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, serverSide) }()

	client := &lspClient{diags: make(chan protocol.PublishDiagnosticsParams, 64)}
	handler := func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
			var params protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(*req.Params, &params); err == nil {
				client.diags <- params
			}
		}
		return nil, nil
	}
	client.conn = jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), jsonrpc2.HandlerWithError(handler))
	t.Cleanup(func() {
		_ = client.conn.Close()
		cancel()
		<-done
	})
	return client
}

func (c *lspClient) call(t *testing.T, method string, params, result interface{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.conn.Call(ctx, method, params, result))
}

func (c *lspClient) open(t *testing.T, u protocol.DocumentURI, text string) {
	t.Helper()
	require.NoError(t, c.conn.Notify(context.Background(), "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: u, LanguageID: "lpl", Version: 1, Text: text},
	}))
}

// waitDiagnostics returns the first publication for u.
func (c *lspClient) waitDiagnostics(t *testing.T, u protocol.DocumentURI) protocol.PublishDiagnosticsParams {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-c.diags:
			if p.URI == u {
				return p
			}
		case <-timeout:
			t.Fatalf("no diagnostics published for %s", u)
		}
	}
}

func docURI(dir, name string) protocol.DocumentURI {
	return uri.File(filepath.Join(dir, name))
}

func TestLSPInitializeAdvertisesCapabilities(t *testing.T) {
	client := startServer(t, Options{Version: "test"})
	var result protocol.InitializeResult
	client.call(t, "initialize", protocol.InitializeParams{}, &result)
	require.NotNil(t, result.ServerInfo)
	require.Equal(t, "lplsense", result.ServerInfo.Name)
	require.Equal(t, "test", result.ServerInfo.Version)
	require.NotNil(t, result.Capabilities.ExecuteCommandProvider)
	require.ElementsMatch(t,
		[]string{CommandRestrictionReport, CommandValidateImports},
		result.Capabilities.ExecuteCommandProvider.Commands)
	require.EqualValues(t, protocol.TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync)
}

func TestLSPPublishesImportDiagnostics(t *testing.T) {
	dir := t.TempDir()
	client := startServer(t, Options{})
	target := docURI(dir, "Target.busclass")
	importer := docURI(dir, "Importer.busclass")

	client.open(t, target, targetText)
	client.open(t, importer, importerText)

	var got protocol.PublishDiagnosticsParams
	for got = client.waitDiagnostics(t, target); len(got.Diagnostics) == 0; {
		got = client.waitDiagnostics(t, target)
	}
	require.Len(t, got.Diagnostics, 1)
	d := got.Diagnostics[0]
	require.Equal(t, protocol.DiagnosticSeverityWarning, d.Severity)
	require.EqualValues(t, 4, d.Range.Start.Line)
	require.Contains(t, d.Message, "c")

	var results []DiagnosticResult
	client.call(t, "workspace/executeCommand", protocol.ExecuteCommandParams{Command: CommandValidateImports}, &results)
	require.Len(t, results, 1)
	require.Equal(t, string(target), results[0].URI)
	require.Equal(t, 4, results[0].Line)
}

func TestLSPClearsDiagnosticsWhenFixed(t *testing.T) {
	dir := t.TempDir()
	client := startServer(t, Options{})
	target := docURI(dir, "Target.busclass")
	importer := docURI(dir, "Importer.busclass")
	client.open(t, target, targetText)
	client.open(t, importer, importerText)
	for got := client.waitDiagnostics(t, target); len(got.Diagnostics) == 0; {
		got = client.waitDiagnostics(t, target)
	}

	fixed := importerText[:len("Importer is a BusinessClass\n    Persistent Fields\n")] +
		"        c is Alpha 10\n" +
		importerText[len("Importer is a BusinessClass\n    Persistent Fields\n"):]
	require.NoError(t, client.conn.Notify(context.Background(), "textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{Version: 2, TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: importer}},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: fixed}},
	}))
	got := client.waitDiagnostics(t, target)
	for len(got.Diagnostics) != 0 {
		got = client.waitDiagnostics(t, target)
	}
	require.Empty(t, got.Diagnostics)
}

func TestLSPNavigation(t *testing.T) {
	dir := t.TempDir()
	client := startServer(t, Options{})
	target := docURI(dir, "Target.busclass")
	importer := docURI(dir, "Importer.busclass")
	client.open(t, target, targetText)
	client.open(t, importer, importerText)

	var symbols []protocol.SymbolInformation
	client.call(t, "textDocument/documentSymbol", protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: importer},
	}, &symbols)
	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "Importer")
	require.Contains(t, names, "CreateSingleTarget")

	// "invoke Import Target" on line 8; the class name starts at column 30.
	pos := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: importer},
		Position:     protocol.Position{Line: 8, Character: 31},
	}
	var locations []protocol.Location
	client.call(t, "textDocument/definition", protocol.DefinitionParams{TextDocumentPositionParams: pos}, &locations)
	require.Len(t, locations, 1)
	require.Equal(t, target, locations[0].URI)
	require.EqualValues(t, 0, locations[0].Range.Start.Line)

	// "a = b" on line 7 resolves the persistent field.
	var hover protocol.Hover
	client.call(t, "textDocument/hover", protocol.HoverParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: importer},
		Position:     protocol.Position{Line: 7, Character: 16},
	}}, &hover)
	require.Equal(t, "a is Alpha 10", hover.Contents.Value)
}

func TestLSPRestrictionReportCommand(t *testing.T) {
	dir := t.TempDir()
	client := startServer(t, Options{})
	client.open(t, docURI(dir, "Foo.busclass"), `Foo is a BusinessClass
    Actions
        Approve is an Action
        Purge is an Action
            restricted
    Ui
        MainList is a List
            Actions
                Approve`)

	var csv string
	client.call(t, "workspace/executeCommand", protocol.ExecuteCommandParams{
		Command:   CommandRestrictionReport,
		Arguments: []interface{}{"Foo"},
	}, &csv)
	require.Equal(t, "ActionName,IsRestricted,ValidWhen,MainList\nApprove,,,X\nPurge,X,,\n", csv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := client.conn.Call(ctx, "workspace/executeCommand", protocol.ExecuteCommandParams{
		Command:   CommandRestrictionReport,
		Arguments: []interface{}{"Missing"},
	}, &csv)
	require.Error(t, err)
}

func TestLSPUnknownMethod(t *testing.T) {
	client := startServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out interface{}
	err := client.conn.Call(ctx, "textDocument/rename", map[string]string{}, &out)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	require.EqualValues(t, jsonrpc2.CodeMethodNotFound, rpcErr.Code)
}

func TestLSPCloseReloadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Target.busclass")
	require.NoError(t, os.WriteFile(path, []byte(targetText), 0o644))
	client := startServer(t, Options{})
	u := uri.File(path)
	client.open(t, u, "Renamed is a BusinessClass")

	require.NoError(t, client.conn.Notify(context.Background(), "textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	}))
	var symbols []protocol.SymbolInformation
	client.call(t, "textDocument/documentSymbol", protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	}, &symbols)
	require.NotEmpty(t, symbols)
	require.Equal(t, "Target", symbols[0].Name)
}

func TestLSPWorkspaceScanKeepsOpenBuffers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Target.busclass"), []byte(targetText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Importer.busclass"), []byte(importerText), 0o644))
	client := startServer(t, Options{})
	target := docURI(dir, "Target.busclass")
	importer := docURI(dir, "Importer.busclass")

	var result protocol.InitializeResult
	client.call(t, "initialize", protocol.InitializeParams{RootURI: uri.File(dir)}, &result)
	client.open(t, target, "Renamed is a BusinessClass\n    Persistent Fields\n        a is Alpha 10")
	require.NoError(t, client.conn.Notify(context.Background(), "initialized", protocol.InitializedParams{}))

	// Target is only known from disk, so once the scan links the importer
	// its import target is missing.
	got := client.waitDiagnostics(t, importer)
	require.Len(t, got.Diagnostics, 1)
	require.Contains(t, got.Diagnostics[0].Message, "Target")

	var symbols []protocol.SymbolInformation
	client.call(t, "textDocument/documentSymbol", protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: target},
	}, &symbols)
	require.NotEmpty(t, symbols)
	require.Equal(t, "Renamed", symbols[0].Name)
}

func TestApplyEdit(t *testing.T) {
	text := "ab\ncd\nef"
	rng := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 1},
		End:   protocol.Position{Line: 2, Character: 1},
	}
	require.Equal(t, "ab\ncXf", applyEdit(text, rng, "X"))
	require.Equal(t, len(text), offsetOf(text, protocol.Position{Line: 9}))
	require.Equal(t, 5, offsetOf(text, protocol.Position{Line: 1, Character: 40}))
}
