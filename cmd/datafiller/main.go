// Package main is the datafiller CLI: a thin cobra entrypoint with no
// business logic of its own. It loads configuration, reads the DDL file,
// calls internal/filler.Run, and writes the result through
// internal/export — every rule lives in those packages.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamil-Krawiec/Data-filler/internal/config"
	"github.com/Kamil-Krawiec/Data-filler/internal/core"
	"github.com/Kamil-Krawiec/Data-filler/internal/ddl"
	"github.com/Kamil-Krawiec/Data-filler/internal/depgraph"
	"github.com/Kamil-Krawiec/Data-filler/internal/export"
	"github.com/Kamil-Krawiec/Data-filler/internal/filler"
	"github.com/Kamil-Krawiec/Data-filler/internal/report"
	"github.com/Kamil-Krawiec/Data-filler/internal/sampler"
)

type generateFlags struct {
	configFile string
	outDir     string
	format     string
	seed       int64
	hasSeed    bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "datafiller",
		Short: "Synthetic, constraint-compliant tabular data generator",
	}
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <ddl-file>",
		Short: "Generate rows for a CREATE TABLE schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.hasSeed = cmd.Flags().Changed("seed")
			return runGenerate(args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configFile, "config", "", "TOML configuration file")
	cmd.Flags().StringVar(&flags.outDir, "out", ".", "Output directory")
	cmd.Flags().StringVar(&flags.format, "format", "sql", "Output format: sql, csv, or json")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Seed for deterministic generation")

	return cmd
}

func runGenerate(ddlPath string, flags *generateFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(ddlPath)
	if err != nil {
		return fmt.Errorf("read %q: %w", ddlPath, err)
	}

	schema, err := ddl.ParseMany(string(src))
	if err != nil {
		return err
	}
	rep := report.New(logrus.StandardLogger())
	for _, tbl := range schema.Tables() {
		for _, w := range tbl.Warnings {
			rep.Add(w)
		}
	}

	plan, err := depgraph.Build(schema)
	if err != nil {
		return err
	}

	reg := sampler.NewRegistry(buildSamplerConfig(schema, cfg))

	result, err := filler.Run(schema, cfg, reg, rep)
	if err != nil {
		return err
	}

	format := export.Format(flags.format)
	if err := export.Write(result, flattenLevels(plan.Levels), flags.outDir, format); err != nil {
		return err
	}

	fmt.Fprint(os.Stderr, rep.Summary())
	return nil
}

func loadConfig(flags *generateFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.hasSeed {
		cfg.Seed = flags.seed
		cfg.HasSeed = true
	} else if !cfg.HasSeed {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}

// buildSamplerConfig resolves every table's predefined-value and
// column-type-mapping scoping (global vs. table-specific, per
// config.Config's documented precedence) once, up front, rather than
// re-resolving it on every sampler.Registry.For call.
func buildSamplerConfig(schema *core.Schema, cfg *config.Config) sampler.Config {
	predefined := map[string]map[string][]core.Value{}
	typeMappings := map[string]map[string]string{}

	for _, tbl := range schema.Tables() {
		typeOf := func(column string) core.TypeTag {
			if c, ok := tbl.Column(column); ok {
				return c.Type
			}
			return core.TypeTag{Kind: core.TypeOpaque}
		}
		predefined[tbl.Name] = cfg.PredefinedValuesFor(tbl.Name, typeOf)
		typeMappings[tbl.Name] = cfg.ColumnTypeMappingsFor(tbl.Name)
	}

	return sampler.Config{
		PredefinedValues:     predefined,
		PerTableTypeMappings: typeMappings,
		GuessColumnTypes:     cfg.GuessColumnTypeMappings,
		FuzzyThreshold:       cfg.ThresholdForGuessing,
	}
}

func flattenLevels(levels [][]string) []string {
	var order []string
	for _, level := range levels {
		order = append(order, level...)
	}
	return order
}
