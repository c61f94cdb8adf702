package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/YASSERRMD/schema-forge/internal/cache"
	"github.com/YASSERRMD/schema-forge/internal/config"
	"github.com/YASSERRMD/schema-forge/internal/db"
	"github.com/YASSERRMD/schema-forge/internal/errs"
	"github.com/YASSERRMD/schema-forge/internal/export"
	minioexport "github.com/YASSERRMD/schema-forge/internal/export/minio"
	"github.com/YASSERRMD/schema-forge/internal/llm"
	"github.com/YASSERRMD/schema-forge/internal/logger"
	"github.com/YASSERRMD/schema-forge/internal/schema"
)

var (
	logLevel  string
	logFormat string

	poolSize  int
	noCache   bool
	cachePath string
	refresh   bool
	summary   bool

	storeEndpoint  string
	storeAccessKey string
	storeSecretKey string
	storeBucket    string
	storeSSL       bool
	presignTTL     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "schema-forge",
	Short: "Index database schemas and render them as LLM prompt context",
	Long: `schema-forge connects to PostgreSQL, MySQL, or SQLite databases,
indexes their schemas, and renders deterministic text context for
natural-language-to-SQL prompting. Indexed schemas are cached locally
so repeat connections skip introspection.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetGlobal(logger.New(&logger.Config{
			Level:  logLevel,
			Format: logFormat,
			Output: os.Stderr,
		}))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	indexCmd.Flags().IntVar(&poolSize, "pool-size", db.DefaultMaxConns, "maximum pooled connections")
	indexCmd.Flags().BoolVar(&noCache, "no-cache", false, "skip writing the index to the local cache")
	indexCmd.Flags().StringVar(&cachePath, "cache-path", "", "cache database path (default: ~/.schema-forge/cache.db)")

	showCmd.Flags().BoolVar(&summary, "summary", false, "render the compact one-line-per-table form")
	showCmd.Flags().BoolVar(&refresh, "refresh", false, "reindex instead of using the cached schema")
	showCmd.Flags().IntVar(&poolSize, "pool-size", db.DefaultMaxConns, "maximum pooled connections")
	showCmd.Flags().StringVar(&cachePath, "cache-path", "", "cache database path (default: ~/.schema-forge/cache.db)")

	cacheCmd.PersistentFlags().StringVar(&cachePath, "cache-path", "", "cache database path (default: ~/.schema-forge/cache.db)")
	cacheCmd.AddCommand(cacheStatsCmd, cacheListCmd, cacheClearCmd, cacheRemoveCmd)

	for _, cmd := range []*cobra.Command{exportCmd, importCmd, presignCmd} {
		cmd.Flags().StringVar(&storeEndpoint, "endpoint", "localhost:9000", "object store endpoint")
		cmd.Flags().StringVar(&storeAccessKey, "access-key", "", "object store access key")
		cmd.Flags().StringVar(&storeSecretKey, "secret-key", "", "object store secret key")
		cmd.Flags().StringVar(&storeBucket, "bucket", "schema-snapshots", "snapshot bucket")
		cmd.Flags().BoolVar(&storeSSL, "ssl", false, "use TLS for the object store connection")
	}
	exportCmd.Flags().IntVar(&poolSize, "pool-size", db.DefaultMaxConns, "maximum pooled connections")
	presignCmd.Flags().DurationVar(&presignTTL, "ttl", time.Hour, "presigned URL lifetime")

	configCmd.AddCommand(configProviderCmd, configModelCmd, configKeySetCmd, configKeyRemoveCmd)

	rootCmd.AddCommand(indexCmd, showCmd, cacheCmd, exportCmd, importCmd, presignCmd, backendsCmd, configCmd)
}

func openCache() (*cache.Cache, error) {
	if cachePath != "" {
		return cache.Open(cachePath)
	}
	return cache.OpenDefault()
}

func connect(ctx context.Context, connURL string) (*db.Manager, error) {
	opts := db.DefaultPoolOptions()
	opts.MaxConns = int32(poolSize)

	m := db.NewManager(logger.Global())
	if err := m.Connect(ctx, connURL, opts); err != nil {
		return nil, err
	}
	return m, nil
}

var indexCmd = &cobra.Command{
	Use:   "index <connection-url>",
	Short: "Index a database schema and cache it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := connect(ctx, args[0])
		if err != nil {
			return err
		}
		defer m.Close()

		if !noCache {
			store, err := openCache()
			if err != nil {
				return err
			}
			defer store.Close()
			m.WithCache(store)
		}

		ix, err := m.Reindex(ctx)
		if err != nil {
			if errs.IsUnsupported(err) {
				return fmt.Errorf("%s is not indexable yet: %w", m.Backend(), err)
			}
			return err
		}

		fmt.Printf("Indexed %d tables and %d views from %s\n",
			len(ix.TablesOnly()), len(ix.Views()), m.Backend())
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <connection-url>",
	Short: "Render schema context for a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := connect(ctx, args[0])
		if err != nil {
			return err
		}
		defer m.Close()

		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()
		m.WithCache(store)

		hit := false
		if !refresh {
			hit, err = m.LoadCached(ctx)
			if err != nil {
				return err
			}
		}
		if !hit {
			if _, err := m.Reindex(ctx); err != nil {
				return err
			}
		}

		if summary {
			fmt.Print(m.SummaryContext())
		} else {
			fmt.Print(m.Context())
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local schema cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and age range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Cache: %s\n", st.Path)
		fmt.Printf("Entries: %d\n", st.Entries)
		if st.Oldest != nil {
			fmt.Printf("Oldest: %s\n", *st.Oldest)
		}
		if st.Newest != nil {
			fmt.Printf("Newest: %s\n", *st.Newest)
		}
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached schemas, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  (indexed %s)\n",
				e.ConnectionURL, e.DatabaseName,
				e.IndexedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Clear(cmd.Context())
	},
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "remove <connection-url>",
	Short: "Remove the cached schema for one connection URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Remove(cmd.Context(), args[0])
	},
}

func openStore(ctx context.Context) (export.Store, error) {
	cfg := export.DefaultConfig(storeEndpoint, storeAccessKey, storeSecretKey)
	cfg.UseSSL = storeSSL
	cfg.Bucket = storeBucket
	return minioexport.New(ctx, cfg)
}

var exportCmd = &cobra.Command{
	Use:   "export <connection-url>",
	Short: "Index a database and upload the snapshot to object storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := connect(ctx, args[0])
		if err != nil {
			return err
		}
		defer m.Close()

		ix, err := m.Reindex(ctx)
		if err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		key, err := store.PutSnapshot(ctx, storeBucket, ix)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded snapshot %s/%s\n", storeBucket, key)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot-key>",
	Short: "Download a snapshot and render its schema context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := store.GetSnapshot(ctx, storeBucket, args[0])
		if err != nil {
			if errs.IsNotFound(err) {
				return fmt.Errorf("snapshot %s not found in bucket %s", args[0], storeBucket)
			}
			return err
		}

		fmt.Print(schema.FormatFull(ix))
		return nil
	},
}

var presignCmd = &cobra.Command{
	Use:   "presign <snapshot-key>",
	Short: "Generate a time-limited download URL for a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		u, err := store.PresignGetURL(ctx, storeBucket, args[0], presignTTL)
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List supported database backends",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		backends := []db.Backend{
			db.BackendPostgres, db.BackendMySQL, db.BackendSQLite, db.BackendMSSQL,
		}
		for _, b := range backends {
			status := "indexable"
			if b == db.BackendMSSQL {
				status = "detection only"
			}
			fmt.Printf("%-22s %s\n", b.Name(), status)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage LLM provider settings",
}

// resolveProvider validates a provider name against the closed kind set and
// returns its canonical lowercase form.
func resolveProvider(name string) (string, error) {
	kind, err := llm.ParseKind(name)
	if err != nil {
		return "", err
	}
	return string(kind), nil
}

var configProviderCmd = &cobra.Command{
	Use:   "provider [name]",
	Short: "Show or set the active LLM provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			current := cfg.CurrentProvider()
			if current == "" {
				fmt.Println("no provider configured")
				return nil
			}
			fmt.Printf("%s (model: %s)\n", current, cfg.Model(current))
			return nil
		}

		provider, err := resolveProvider(args[0])
		if err != nil {
			return err
		}
		return cfg.SetCurrentProvider(provider)
	},
}

var configModelCmd = &cobra.Command{
	Use:   "model <provider> [model]",
	Short: "Show or override the model for a provider",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}

		provider, err := resolveProvider(args[0])
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Println(cfg.Model(provider))
			return nil
		}
		return cfg.SetModel(provider, args[1])
	},
}

var configKeySetCmd = &cobra.Command{
	Use:   "set-key <provider> <key>",
	Short: "Store an API key for a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}

		provider, err := resolveProvider(args[0])
		if err != nil {
			return err
		}
		return cfg.SetAPIKey(provider, args[1])
	},
}

var configKeyRemoveCmd = &cobra.Command{
	Use:   "remove-key <provider>",
	Short: "Delete the stored API key for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}

		provider, err := resolveProvider(args[0])
		if err != nil {
			return err
		}
		return cfg.RemoveAPIKey(provider)
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
