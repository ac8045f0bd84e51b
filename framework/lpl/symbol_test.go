package lpl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolKindJSON(t *testing.T) {
	data, err := json.Marshal(Symbol{Name: "Approve", Kind: KindEnumMember})
	require.NoError(t, err)
	require.Contains(t, string(data), `"kind":"enum_member"`)

	var sym Symbol
	require.NoError(t, json.Unmarshal(data, &sym))
	require.Equal(t, KindEnumMember, sym.Kind)

	var kind SymbolKind
	require.NoError(t, json.Unmarshal([]byte(`7`), &kind))
	require.Equal(t, KindMethod, kind)
	require.Error(t, json.Unmarshal([]byte(`"bogus"`), &kind))
}
