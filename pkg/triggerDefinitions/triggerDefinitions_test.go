package triggerDefinitions

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleYaml = `
events:
  - name: usdcTransfers
    chainId: 1
    address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    declaration: "event Transfer(address indexed from, address indexed to, uint256 value);"
    filters:
      to: "0x000000000000000000000000000000000000dEaD"
      value: 10
    fields: [from, value]
transactions:
  - name: toBurn
    chainId: 17000
    to: "0x000000000000000000000000000000000000dEaD"
`

func Test_TriggerDefinitions(t *testing.T) {
	t.Run("Should load events and transactions", func(t *testing.T) {
		td, err := NewTriggerDefinitionsFromYamlBytes([]byte(exampleYaml))
		require.Nil(t, err)
		require.Len(t, td.Events, 1)
		require.Len(t, td.Transactions, 1)

		e := td.Events[0]
		assert.Equal(t, "Transfer", e.Descriptor().Name)
		assert.Len(t, e.Descriptor().IndexedInputs(), 2)
		assert.Equal(t, big.NewInt(10), e.Filters["value"])
		assert.Equal(t, "0x000000000000000000000000000000000000dEaD", e.Filters["to"])
		assert.Equal(t, []string{"from", "value"}, e.Fields)
		assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", e.ContractAddress().Hex())

		assert.Equal(t, uint64(17000), td.Transactions[0].ChainId)
	})
	t.Run("Should load from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "triggers.yaml")
		require.Nil(t, os.WriteFile(path, []byte(exampleYaml), 0o600))
		td, err := LoadFile(path)
		require.Nil(t, err)
		assert.Len(t, td.Events, 1)

		_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.NotNil(t, err)
	})
	t.Run("Should surface declaration syntax errors", func(t *testing.T) {
		_, err := NewTriggerDefinitionsFromYamlBytes([]byte(`
events:
  - name: bad
    chainId: 1
    address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    declaration: "Transfer(address from to extra)"
`))
		var syntaxErr *abiDeclaration.SyntaxError
		assert.True(t, errors.As(err, &syntaxErr))
	})
	t.Run("Should reject duplicate names and bad addresses", func(t *testing.T) {
		_, err := NewTriggerDefinitionsFromYamlBytes([]byte(`
transactions:
  - name: a
    chainId: 1
  - name: a
    chainId: 1
`))
		assert.NotNil(t, err)

		_, err = NewTriggerDefinitionsFromYamlBytes([]byte(`
events:
  - name: e
    chainId: 1
    address: "nope"
    declaration: "Ping(uint256 n)"
`))
		assert.NotNil(t, err)
	})
	t.Run("Should accept json", func(t *testing.T) {
		td, err := NewTriggerDefinitionsFromJsonBytes([]byte(`{"transactions":[{"name":"t","chainId":1,"from":"0xabc"}]}`))
		require.Nil(t, err)
		assert.Equal(t, "0xabc", td.Transactions[0].From)
	})
	t.Run("Should keep integers wider than 64 bits exact", func(t *testing.T) {
		td, err := NewTriggerDefinitionsFromYamlBytes([]byte(`
events:
  - name: big
    chainId: 1
    address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    declaration: "Ping(uint256 n, uint256[] ns, bool ok)"
    filters:
      n: 115792089237316195423570985008687907853269984665640564039457584007913129639935
      ns: [18446744073709551617, 0x10]
      ok: true
`))
		require.Nil(t, err)
		f := td.Events[0].Filters

		maxUint256, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
		assert.Equal(t, maxUint256, f["n"])

		above, _ := new(big.Int).SetString("18446744073709551617", 10)
		assert.Equal(t, []any{above, big.NewInt(16)}, f["ns"])
		assert.Equal(t, true, f["ok"])
	})
	t.Run("Should keep non integral numbers as text", func(t *testing.T) {
		td, err := NewTriggerDefinitionsFromYamlBytes([]byte(`
events:
  - name: frac
    chainId: 1
    address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    declaration: "Ping(uint256 n)"
    filters:
      n: 1.5
`))
		require.Nil(t, err)
		assert.Equal(t, "1.5", td.Events[0].Filters["n"])
	})
	t.Run("Should keep json numbers exact", func(t *testing.T) {
		td, err := NewTriggerDefinitionsFromJsonBytes([]byte(`{"events":[{"name":"e","chainId":1,` +
			`"address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","declaration":"Ping(uint256 n)",` +
			`"filters":{"n":18446744073709551617}}]}`))
		require.Nil(t, err)
		assert.Equal(t, json.Number("18446744073709551617"), td.Events[0].Filters["n"])
	})
	t.Run("Should accept an empty file", func(t *testing.T) {
		td, err := NewTriggerDefinitionsFromYamlBytes([]byte(""))
		require.Nil(t, err)
		assert.Empty(t, td.Events)
	})
}
