package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the contents of a controller or clip",
	Long: `Prints the inputs, slots, animation sets, masks, IK chains and node tree of a controller
(.ctrl, .yaml or .yml), or the header and tracks of a clip (.anim).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".ctrl":
		c, err := controller.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}
		describeController(w, c)
	case ".yaml", ".yml":
		c, err := controller.CompileSource(data)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", file, err)
		}
		describeController(w, c)
	case ".anim":
		a, err := clip.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}
		describeClip(w, a)
	default:
		return fmt.Errorf("unsupported file extension %q", ext)
	}
	return nil
}
