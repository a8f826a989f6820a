package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ragchat/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default ragchat.yaml",
	Long: `Write the default configuration to ragchat.yaml in the root directory
so it can be edited. An existing file is kept unless --force is given.`,
	Args: cobra.NoArgs,
	// init must work before any config exists, so skip the root loader.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing ragchat.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := rootDir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	path, err := writeDefaultConfig(dir, initForce)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func writeDefaultConfig(dir string, force bool) (string, error) {
	path := filepath.Join(dir, "ragchat.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
