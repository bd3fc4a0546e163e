package cmd

import (
	"fmt"

	"trendaryo/config"
	"trendaryo/db"
	"trendaryo/rdx"
	"trendaryo/repository/mongodb"
	"trendaryo/search"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rebuildSearch bool

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create MongoDB indexes",
	Long: `Create the unique and query indexes the storefront relies on.

With --search the Redis autocomplete index is rebuilt from the catalog too.`,
	RunE: runIndexes,
}

func init() {
	indexesCmd.Flags().BoolVar(&rebuildSearch, "search", false, "rebuild the autocomplete index")
	rootCmd.AddCommand(indexesCmd)
}

func runIndexes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer db.Disconnect(ctx)

	if err := mongodb.EnsureIndexes(ctx, database); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	if !rebuildSearch {
		return nil
	}
	conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer conn.Close()
	n, err := reindex(ctx, mongodb.NewStore(database).Products, &search.RedisIndex{Conn: conn})
	if err != nil {
		return err
	}
	log.Info().Int("products", n).Msg("autocomplete index rebuilt")
	return nil
}
