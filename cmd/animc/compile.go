package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <source.yaml>",
	Short: "Compile a YAML controller source to a .ctrl asset",
	Long: `Parses and validates a YAML controller source and writes the binary controller asset.
Clip paths are stored as written; they are resolved when the asset is loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		return runCompile(cmd, args[0], out)
	},
}

func init() {
	compileCmd.Flags().StringP("out", "o", "", "Output path (defaults to the source path with a .ctrl extension)")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, src, out string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	c, err := controller.CompileSource(data)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", src, err)
	}
	if out == "" {
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".ctrl"
	}
	asset := c.Marshal()
	if err := os.WriteFile(out, asset, 0o644); err != nil {
		return err
	}
	logger.Debug("compiled controller", "source", src, "out", out, "bytes", len(asset))
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d bytes)\n", src, out, len(asset))
	return nil
}
