package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or show configuration",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file
  show     - Print the effective configuration after file and environment overrides

Examples:
  xsection config init -o xsection.yaml
  xsection config validate -f xsection.yaml
  XSECTION_WORKERS=8 xsection config show --config xsection.yaml --format json`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configInitOutput   string
	configValidatePath string
	configShowFormat   string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "xsection.yaml", "output config file path (.yaml or .json)")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "yaml", "output format: yaml|json")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  xsection run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Range: %s .. %s (date column %s)\n", c.StartDate, c.EndDate, c.DateColumn)
	fmt.Printf("  Features: %s\n", strings.Join(c.Features, ", "))
	fmt.Printf("  Missing features: %s\n", c.MissingFeature)
	fmt.Printf("  Output: %s %v\n", c.Output.Dir, c.Output.Formats)
	if c.PortfolioEnabled() {
		fmt.Printf("  Portfolio: top %d by %s, rebalance on %s\n",
			c.Portfolio.TopN, c.Portfolio.SignalFeature, c.Rebalance.TargetSymbol)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := cfg.Encode(configShowFormat)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(out)
	}
	return nil
}
