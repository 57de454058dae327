package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/Layr-Labs/chainwatch/pkg/abiDeclaration"
	"github.com/Layr-Labs/chainwatch/pkg/transactionBuilder"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Call or send a transaction to a contract function",
	Run: func(cmd *cobra.Command, args []string) {
		rt := newRuntime(cmd)
		defer rt.close()
		l := rt.logger

		contract := requireFlag(cmd, "contract")
		if !common.IsHexAddress(contract) {
			l.Sugar().Fatalw("Invalid contract address", zap.String("contract", contract))
		}
		function, err := abiDeclaration.ParseFunction(requireFlag(cmd, "declaration"))
		if err != nil {
			l.Sugar().Fatalw("Failed to parse function declaration", zap.Error(err))
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		signer, err := signerFromConfig(rt.cfg.SignerConfig.PrivateKey, dryRun || function.IsReadOnly())
		if err != nil {
			l.Sugar().Fatalw("Failed to load signer", zap.Error(err))
		}

		rawParams, _ := cmd.Flags().GetStringToString("param")
		params := make(map[string]any, len(rawParams))
		for name, value := range rawParams {
			params[name] = value
		}

		key, _ := cmd.Flags().GetString("key")
		sessionId, _ := cmd.Flags().GetString("session-id")

		tb := transactionBuilder.NewTransactionBuilder(rt.provider, signer, nil, rt.eventBus, rt.sink, l)
		res, err := tb.Submit(context.Background(), &transactionBuilder.SubmissionRequest{
			Key:                  key,
			SessionId:            sessionId,
			ChainId:              rt.chainIdFlag(cmd),
			Contract:             common.HexToAddress(contract),
			Function:             function,
			Parameters:           params,
			MaxFeePerGas:         optionalAmount(cmd, "max-fee-per-gas"),
			MaxPriorityFeePerGas: optionalAmount(cmd, "max-priority-fee-per-gas"),
			GasLimit:             optionalAmount(cmd, "gas-limit"),
			Value:                optionalAmount(cmd, "value"),
			DryRun:               dryRun,
		})
		if err != nil {
			l.Sugar().Fatalw("Submission failed", zap.Error(err))
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			l.Sugar().Fatalw("Failed to print result", zap.Error(err))
		}
	},
}

// signerFromConfig loads the configured key. Reads may run without one, in
// which case a throwaway key is used as the sender.
func signerFromConfig(privateKey string, readOnly bool) (transactionBuilder.Signer, error) {
	if privateKey == "" && readOnly {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		return transactionBuilder.NewPrivateKeySignerFromKey(key), nil
	}
	signer, err := transactionBuilder.NewPrivateKeySigner(privateKey)
	if err != nil {
		return nil, err
	}
	return signer, nil
}

// optionalAmount returns nil for an unset flag so the builder applies its
// defaults.
func optionalAmount(cmd *cobra.Command, name string) any {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil
	}
	return v
}

func init() {
	submitCmd.Flags().Uint64("chain-id", 0, "Chain id to submit to (defaults to the id of --chain)")
	submitCmd.Flags().String("contract", "", "Contract address")
	submitCmd.Flags().String("declaration", "", `Function declaration, e.g. "transfer(address to, uint256 amount) returns (bool)"`)
	submitCmd.Flags().StringToString("param", map[string]string{}, "Function parameters as name=value pairs")
	submitCmd.Flags().String("max-fee-per-gas", "", "Fee cap per gas in ether, e.g. 0.000000175")
	submitCmd.Flags().String("max-priority-fee-per-gas", "", "Priority fee per gas in ether")
	submitCmd.Flags().String("gas-limit", "", "Total fee budget in ether")
	submitCmd.Flags().String("value", "", "Ether sent with the call, payable functions only")
	submitCmd.Flags().Bool("dry-run", false, "Simulate instead of broadcasting")
	submitCmd.Flags().String("key", "", "Caller supplied correlation key echoed in the result")
	submitCmd.Flags().String("session-id", "", "Session id echoed in the result (generated when empty)")
}
