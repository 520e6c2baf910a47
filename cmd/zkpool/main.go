package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kysee/zkpool/utils"
	zkpool "github.com/kysee/zkpool/zk-pool"
	"github.com/kysee/zkpool/zk-pool/crypto"
	"github.com/kysee/zkpool/zk-pool/types"
	"github.com/kysee/zkpool/zk-pool/zk"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "zkpool",
		Short: "Shielded commitment pool",
		Long: `zkpool keeps deposit commitments in a MiMC Merkle tree and releases
them against zero-knowledge withdrawal proofs.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var configPath string
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "zkpool.json", "Path to the pool config file")

	// Setup command - compiles the circuit and writes both keys
	var setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Compile the withdrawal circuit and generate its keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runSetup(cfg, logger)
		},
	}

	// Export command - writes the solidity verifier for the verification key
	var outPath string
	var exportCmd = &cobra.Command{
		Use:   "export-verifier",
		Short: "Export an on-chain verifier contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			vk, err := zk.LoadVerificationKey(cfg.VerificationKeyPath)
			if err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := vk.ExportSolidity(f); err != nil {
				return err
			}
			fmt.Printf("verifier written to %s\n", outPath)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&outPath, "out", "Verifier.sol", "Output path of the contract")

	// Demo command - deposit and withdraw once against the configured keys
	var memory bool
	var demoCmd = &cobra.Command{
		Use:   "demo",
		Short: "Run a deposit and withdrawal round trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if memory {
				cfg.DataDir = ""
			}
			return runDemo(cfg, logger)
		},
	}
	demoCmd.Flags().BoolVar(&memory, "memory", true, "Keep the demo pool in memory")

	rootCmd.AddCommand(setupCmd, exportCmd, demoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*zkpool.Config, zerolog.Logger, error) {
	cfg, err := zkpool.LoadConfig(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, utils.NewLogger(os.Stdout, cfg.LogLevel), nil
}

func runSetup(cfg *zkpool.Config, logger zerolog.Logger) error {
	backend, vk, err := zk.Setup(cfg.ProvingScheme, cfg.TreeDepth, zk.WithLogger(logger))
	if err != nil {
		return err
	}

	for _, p := range []string{cfg.ProvingKeyPath, cfg.VerificationKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
	}
	if err := backend.WriteProvingKey(cfg.ProvingKeyPath); err != nil {
		return err
	}
	if err := vk.Save(cfg.VerificationKeyPath); err != nil {
		return err
	}

	logger.Info().Str("pk", cfg.ProvingKeyPath).Str("vk", cfg.VerificationKeyPath).Msg("keys written")
	return nil
}

// runDemo places a deposit at index 2 among the leaves 123, 456 and 789,
// proves it and withdraws it twice.
func runDemo(cfg *zkpool.Config, logger zerolog.Logger) error {
	backend, err := zk.Load(cfg.ProvingScheme, cfg.TreeDepth, cfg.ProvingKeyPath, zk.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("%w: %v (run setup first)", types.ErrConfig, err)
	}
	pool, err := zkpool.Open(cfg, backend, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	prv, err := crypto.NewKey()
	if err != nil {
		return err
	}
	fmt.Printf("identity: %s\n", types.Pub2Identity(&prv.PublicKey))

	for _, leaf := range []string{"123", "456"} {
		if _, err := pool.Insert(types.MustField(leaf)); err != nil {
			return err
		}
	}
	note, err := pool.Deposit(&prv.PublicKey,
		utils.RandBytes(types.MaxSecretSize), utils.RandBytes(types.MaxSecretSize))
	if err != nil {
		return err
	}
	if _, err := pool.Insert(types.MustField("789")); err != nil {
		return err
	}
	commitment := note.Commitment(types.DefaultCommitHash)
	fmt.Printf("commitment: %s (index %d)\n", commitment, note.LeafIndex)

	ret, err := pool.Prove(note)
	if err != nil {
		return err
	}
	bz, err := json.MarshalIndent(ret, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("proof: %s\n", bz)

	calldata, err := zk.NewProofData(ret)
	if err != nil {
		return err
	}
	bz, err = json.MarshalIndent(calldata, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("verifier calldata: %s\n", bz)

	req := &types.WithdrawRequest{
		Commitment:    commitment,
		NullifierHash: note.NullifierHash(types.DefaultCommitHash),
		Proof:         ret.Proof,
		PublicSignals: ret.PublicSignals,
	}
	rcpt, err := pool.Withdraw(req)
	if err != nil {
		return err
	}
	fmt.Printf("withdrawn against root %s\n", rcpt.Root)

	if _, err := pool.Withdraw(req); err != nil {
		fmt.Printf("second withdrawal refused: %v\n", err)
	}
	return nil
}
