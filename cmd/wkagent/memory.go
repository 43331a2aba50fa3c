package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/config"
	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear persisted long-term memory",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted long-term memory snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if snap == nil {
			fmt.Println("No persisted memory.")
			return nil
		}
		fmt.Println(jsonx.Indent(snap))
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted long-term memory snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := contextOrBackground(cmd.Context())
		backend, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if backend == nil {
			return errPersistenceDisabled
		}
		defer backend.Close()
		if err := backend.Delete(ctx, cfg.Memory.Persistence.Key); err != nil {
			return err
		}
		printStatus("✓", "Cleared long-term memory", color.FgGreen)
		return nil
	},
}

var errPersistenceDisabled = errors.New("memory persistence is disabled (memory.persistence.enabled)")

func init() {
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryClearCmd)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// loadSnapshot reads the persisted snapshot. It returns nil when none exists.
func loadSnapshot(ctx context.Context) (*memory.Snapshot, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return readSnapshot(contextOrBackground(ctx), cfg)
}

func readSnapshot(ctx context.Context, cfg *config.Config) (*memory.Snapshot, error) {
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, errPersistenceDisabled
	}
	defer backend.Close()

	data, err := backend.Load(ctx, cfg.Memory.Persistence.Key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var snap memory.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
