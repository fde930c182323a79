package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/logging"
)

var (
	category    string
	edgeType    string
	searchLimit int

	indexType      string
	indexM         int
	efConstruction int
	indexLists     int
)

var addCmd = &cobra.Command{
	Use:   "add [fact]",
	Short: "Store a new fact",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		cat, err := core.ParseCategory(category)
		if err != nil {
			return err
		}
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		record, err := client.Add(cmd.Context(), strings.Join(args, " "), cat, core.WithUserID(userID))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), record)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [id] [fact]",
	Short: "Supersede a fact with a new version",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		cat, err := core.ParseCategory(category)
		if err != nil {
			return err
		}
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		record, err := client.Update(cmd.Context(), id, strings.Join(args[1:], " "),
			core.EdgeType(edgeType), cat, core.WithUserIDForUpdate(userID))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), record)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Soft-delete facts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		logger := logging.From(cmd.Context())
		ids := parseIDs(logger, args)

		result, err := client.Delete(cmd.Context(), ids, core.WithUserIDForDelete(userID))
		if err != nil && !core.IsBenign(err) {
			return err
		}
		if err != nil {
			logger.Info(core.UserMessage(err))
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Rank active facts by similarity to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, false)
	},
}

var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Keyword match first, then similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args, true)
	},
}

func runSearch(cmd *cobra.Command, args []string, recall bool) error {
	if err := requireUser(); err != nil {
		return err
	}
	client, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	query := strings.Join(args, " ")
	opts := []core.SearchOption{core.WithUserIDForSearch(userID), core.WithLimit(searchLimit)}
	var hits []*core.SearchHit
	if recall {
		hits, err = client.Recall(cmd.Context(), query, opts...)
	} else {
		hits, err = client.Search(cmd.Context(), query, opts...)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), hits)
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show a fact and every version it superseded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		chain, err := client.History(cmd.Context(), id, core.WithUserIDForGet(userID))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), chain)
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index on the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var idx core.IndexConfig
		switch strings.ToLower(indexType) {
		case "hnsw":
			idx.IndexType = core.IndexTypeHNSW
		case "ivfflat", "ivf_flat":
			idx.IndexType = core.IndexTypeIVFFlat
		default:
			return fmt.Errorf("%w: index type %q, want hnsw or ivfflat", core.ErrInvalidInput, indexType)
		}
		idx.M = indexM
		idx.EfConstruction = efConstruction
		idx.Lists = indexLists

		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.CreateIndex(cmd.Context(), &idx); err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]string{"index": string(idx.IndexType), "status": "ok"})
	},
}

func init() {
	RootCmd.AddCommand(addCmd, updateCmd, deleteCmd, searchCmd, recallCmd, historyCmd, indexCmd)

	addCmd.Flags().StringVarP(&category, "category", "c", "fact", "fact, episode or semantic")
	updateCmd.Flags().StringVarP(&category, "category", "c", "fact", "fact, episode or semantic")
	updateCmd.Flags().StringVarP(&edgeType, "edge", "e", string(core.EdgeReplace), "replace or extend")

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
	recallCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")

	indexCmd.Flags().StringVar(&indexType, "type", "hnsw", "hnsw or ivfflat")
	indexCmd.Flags().IntVar(&indexM, "m", 16, "HNSW connections per node")
	indexCmd.Flags().IntVar(&efConstruction, "ef-construction", 64, "HNSW build-time search depth")
	indexCmd.Flags().IntVar(&indexLists, "lists", 100, "IVFFlat cluster count")
}
