package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mnemos/internal/config"
	"mnemos/internal/logging"
	"mnemos/pkg/mnemos"
)

func main() {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalFlags holds flags shared by every subcommand. Only flags the user
// set explicitly override file and environment values.
type globalFlags struct {
	configPath   string
	store        string
	dbPath       string
	seed         int64
	epsilon      float64
	gamma        float64
	learningRate float64
	verbose      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "mnemosctl",
		Short:         "Adaptive spaced-repetition study planner",
		Long:          "mnemosctl serves and queries a study planner that learns which review/new-card mix to schedule from quiz statistics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "KEY=VALUE config file")
	pf.StringVar(&flags.store, "store", "", "plan history backend: memory or sqlite")
	pf.StringVar(&flags.dbPath, "db-path", "", "sqlite database path")
	pf.Int64Var(&flags.seed, "seed", 0, "random seed (0 seeds from the clock)")
	pf.Float64Var(&flags.epsilon, "epsilon", 0, "exploration rate")
	pf.Float64Var(&flags.gamma, "gamma", 0, "discount factor")
	pf.Float64Var(&flags.learningRate, "learning-rate", 0, "optimizer learning rate")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug output")

	root.AddCommand(
		newServeCmd(flags),
		newPlanCmd(flags),
		newForecastCmd(flags),
		newHistoryCmd(flags),
	)
	return root
}

func buildOverrides(cmd *cobra.Command, flags *globalFlags) map[string]string {
	overrides := make(map[string]string)
	set := func(flag, key, value string) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("store", "MNEMOS_STORE", flags.store)
	set("db-path", "MNEMOS_DB_PATH", flags.dbPath)
	set("seed", "MNEMOS_SEED", fmt.Sprintf("%d", flags.seed))
	set("epsilon", "MNEMOS_EPSILON", fmt.Sprintf("%g", flags.epsilon))
	set("gamma", "MNEMOS_GAMMA", fmt.Sprintf("%g", flags.gamma))
	set("learning-rate", "MNEMOS_LEARNING_RATE", fmt.Sprintf("%g", flags.learningRate))
	set("verbose", "MNEMOS_VERBOSE", fmt.Sprintf("%t", flags.verbose))
	return overrides
}

// setup resolves configuration and opens a client. extra carries
// subcommand-specific overrides.
func setup(cmd *cobra.Command, flags *globalFlags, extra map[string]string) (*config.Config, *logging.Logger, *mnemos.Client, error) {
	overrides := buildOverrides(cmd, flags)
	for k, v := range extra {
		overrides[k] = v
	}
	cfg, err := config.Load(flags.configPath, overrides)
	if err != nil {
		return nil, nil, nil, err
	}

	log := logging.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Verbose)
	log.Debugf("config: store=%s db=%s epsilon=%g gamma=%g lr=%g seed=%d", cfg.StoreKind, cfg.DBPath, cfg.Epsilon, cfg.Gamma, cfg.LearningRate, cfg.Seed)

	client, err := mnemos.New(mnemos.OptionsFromConfig(cfg, log))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, client, nil
}
