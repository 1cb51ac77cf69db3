package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"dexcollector/config"
	"dexcollector/internal/collector"
	"dexcollector/logger"
	"dexcollector/pkg/historycache"
	"dexcollector/pkg/storage/postgres"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	backendKey   = "backend"
	namespaceKey = "namespace"
	pathKey      = "path"
	outKey       = "out"
	overwriteKey = "overwrite"
)

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and move the token history cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String(backendKey, "", "Cache backend override: file, redis, postgres or memory")
	flags.String(namespaceKey, "", "Cache namespace override")
	flags.String(pathKey, "", "Directory of the file backend")

	root.AddCommand(exportCommand(), importCommand(), getCommand(), removeCommand(), keysCommand())
	return root
}

// session is an opened history cache plus whatever it holds open.
type session struct {
	cache  *historycache.Cache
	logger *zap.Logger
	close  func()
}

func open(ctx context.Context, flags *pflag.FlagSet) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := flags.GetString(backendKey); v != "" {
		cfg.Cache.Backend = v
	}
	if v, _ := flags.GetString(namespaceKey); v != "" {
		cfg.Cache.Namespace = v
	}
	if v, _ := flags.GetString(pathKey); v != "" {
		cfg.Cache.Path = v
	}

	// keep stdout clean for exported blobs
	cfg.Log.Level = "error"
	cfg.Log.OutputFile = ""
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	var pg *postgres.PostgresClient
	if cfg.Cache.Backend == "postgres" {
		pg, err = postgres.Initialize(cfg.Postgres, cfg.Log.Environment, false)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
	}

	store, closeStore, err := collector.OpenHistoryStore(ctx, cfg, pg)
	if err != nil {
		if pg != nil {
			_ = pg.Close()
		}
		return nil, err
	}

	return &session{
		cache:  historycache.New(store, cfg.Cache.Namespace, log),
		logger: log,
		close: func() {
			_ = closeStore()
			if pg != nil {
				_ = pg.Close()
			}
			_ = log.Sync()
		},
	}, nil
}

func exportCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "export",
		Short: "Write the whole namespace as JSON",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := open(c.Context(), c.Flags())
			if err != nil {
				return err
			}
			defer s.close()

			blob, err := s.cache.ExportAll(c.Context())
			if err != nil {
				return err
			}

			out, _ := c.Flags().GetString(outKey)
			if out == "" || out == "-" {
				_, err = c.OutOrStdout().Write(append(blob, '\n'))
				return err
			}
			return os.WriteFile(out, blob, 0o644)
		},
	}
	c.Flags().String(outKey, "-", "Output file, - for stdout")
	return c
}

func importCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge (or with --overwrite replace) the namespace from an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var (
				blob []byte
				err  error
			)
			if args[0] == "-" {
				blob, err = io.ReadAll(c.InOrStdin())
			} else {
				blob, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			s, err := open(c.Context(), c.Flags())
			if err != nil {
				return err
			}
			defer s.close()

			overwrite, _ := c.Flags().GetBool(overwriteKey)
			if err := s.cache.ImportAll(c.Context(), blob, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "imported %d keys\n", len(s.cache.Keys(c.Context())))
			return nil
		},
	}
	c.Flags().Bool(overwriteKey, false, "Replace the namespace instead of merging")
	return c
}

func getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the JSON stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			s, err := open(c.Context(), c.Flags())
			if err != nil {
				return err
			}
			defer s.close()

			raw, err := s.cache.LoadRaw(c.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = c.OutOrStdout().Write(append(raw, '\n'))
			return err
		},
	}
}

func removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			s, err := open(c.Context(), c.Flags())
			if err != nil {
				return err
			}
			defer s.close()
			return s.cache.Remove(c.Context(), args[0])
		},
	}
}

func keysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			s, err := open(c.Context(), c.Flags())
			if err != nil {
				return err
			}
			defer s.close()

			for _, k := range s.cache.Keys(c.Context()) {
				fmt.Fprintln(c.OutOrStdout(), k)
			}
			return nil
		},
	}
}
