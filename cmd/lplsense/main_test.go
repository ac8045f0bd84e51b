package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var workspaceFiles = map[string]string{
	"bl/Target.busclass": `Target is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
        c is Alpha 10`,
	"bl/Importer.busclass": `Importer is a BusinessClass
    Persistent Fields
        a is Alpha 10
        b is Alpha 10
    Actions
        CreateSingleTarget is an Action
            Action Rules
                a = b
                invoke Import Target`,
	"ui/Foo.busclass": `Foo is a BusinessClass
    Actions
        Approve is an Action
        Purge is an Action
            restricted
    Ui
        MainList is a List
            Actions
                Approve`,
}

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range workspaceFiles {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOutlineCommand(t *testing.T) {
	ws := writeWorkspace(t)
	out, err := runCLI(t, "outline", "bl/Target.busclass", "--workspace", ws)
	require.NoError(t, err)
	require.Contains(t, out, "Target")
	require.Contains(t, out, "Persistent Fields")
	require.NotContains(t, out, "a field")

	out, err = runCLI(t, "outline", "bl/Target.busclass", "--workspace", ws, "--deep")
	require.NoError(t, err)
	require.Contains(t, out, "    a field")
}

func TestDefinitionAndHoverCommands(t *testing.T) {
	ws := writeWorkspace(t)
	out, err := runCLI(t, "definition", "bl/Importer.busclass", "9:31", "--workspace", ws)
	require.NoError(t, err)
	require.Contains(t, out, filepath.Join("bl", "Target.busclass"))
	require.Contains(t, out, "1:1-1:7")

	out, err = runCLI(t, "hover", "bl/Importer.busclass", "8:17", "--workspace", ws)
	require.NoError(t, err)
	require.Equal(t, "a is Alpha 10\n", out)

	_, err = runCLI(t, "hover", "bl/Importer.busclass", "2:1", "--workspace", ws)
	require.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	ws := writeWorkspace(t)
	out, err := runCLI(t, "validate", "--workspace", ws)
	require.NoError(t, err)
	require.Contains(t, out, "field c is not declared by importing class Importer")

	_, err = runCLI(t, "validate", "--workspace", ws, "--strict")
	require.Error(t, err)
}

func TestReportCommand(t *testing.T) {
	ws := writeWorkspace(t)
	out, err := runCLI(t, "report", "Foo", "--workspace", ws)
	require.NoError(t, err)
	require.Equal(t, "ActionName,IsRestricted,ValidWhen,MainList\nApprove,,,X\nPurge,X,,\n", out)

	_, err = runCLI(t, "report", "Missing", "--workspace", ws)
	require.Error(t, err)
}

func TestIndexAndSymbolsCommands(t *testing.T) {
	ws := writeWorkspace(t)
	db := filepath.Join(t.TempDir(), "index.db")
	out, err := runCLI(t, "index", "--workspace", ws, "--index-db", db)
	require.NoError(t, err)
	require.Contains(t, out, "Indexed 3 of 3 files")
	require.Contains(t, out, "classes")
	require.Contains(t, out, "Statistic")

	out, err = runCLI(t, "symbols", "Tar%", "--workspace", ws, "--index-db", db)
	require.NoError(t, err)
	require.Contains(t, out, "Target")
	require.Contains(t, out, "Location")

	out, err = runCLI(t, "symbols", "--kind", "method", "--workspace", ws, "--index-db", db)
	require.NoError(t, err)
	require.Contains(t, out, "CreateSingleTarget")

	_, err = runCLI(t, "symbols", "--kind", "bogus", "--workspace", ws, "--index-db", db)
	require.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	ws := t.TempDir()
	_, err := runCLI(t, "config", "init", "--workspace", ws)
	require.NoError(t, err)
	_, err = runCLI(t, "config", "init", "--workspace", ws)
	require.Error(t, err)

	out, err := runCLI(t, "config", "show", "--workspace", ws, "--tab-width", "8")
	require.NoError(t, err)
	require.Contains(t, out, "tab_width: 8")
}
