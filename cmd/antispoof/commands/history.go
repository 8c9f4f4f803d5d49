package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/antispoof/pkg/cli"
	"github.com/haivivi/antispoof/pkg/history"
)

var (
	historyDB    string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored predictions",
	Long: `Read the prediction history written by 'antispoof serve'.

The store is opened read-only, so it can be inspected while the server is
running.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent predictions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := outputOptions()
		if err != nil {
			return err
		}
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(recs) == 0 && opts.Format == cli.FormatTable {
			fmt.Println("No predictions")
			return nil
		}
		return cli.Output(recordList(recs), opts)
	},
}

var historyGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one prediction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := outputOptions()
		if err != nil {
			return err
		}
		if !history.ValidID(args[0]) {
			return fmt.Errorf("invalid id %q", args[0])
		}
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if opts.Format == cli.FormatTable {
			return cli.Output(recordDetail{rec}, opts)
		}
		return cli.Output(rec, opts)
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDB, "db", "data/history", "history store directory")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultListLimit, "maximum records to show")
	historyCmd.AddCommand(historyListCmd, historyGetCmd)
	rootCmd.AddCommand(historyCmd)
}

// testHistoryOverride replaces the badger store in tests.
var testHistoryOverride history.Store

func openHistory() (history.Store, error) {
	if testHistoryOverride != nil {
		return nopCloseStore{testHistoryOverride}, nil
	}
	return history.NewBadger(history.BadgerOptions{
		Dir:      historyDB,
		ReadOnly: true,
		Logger:   cliLogger(),
	})
}

type nopCloseStore struct{ history.Store }

func (nopCloseStore) Close() error { return nil }

// recordList renders one row per record.
type recordList []*history.Record

func (l recordList) Table() cli.Table {
	t := cli.Table{Headers: []string{"ID", "CREATED", "FILE", "CHANNELS", "DURATION", "PREDICTION"}}
	for _, r := range l {
		labels := make([]string, len(r.Results))
		for i, res := range r.Results {
			labels[i] = string(res.Label)
		}
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Filename,
			strconv.Itoa(r.Channels),
			cli.FormatSeconds(r.Duration),
			strings.Join(labels, " "),
		})
	}
	return t
}

// recordDetail renders one row per channel of a record.
type recordDetail struct{ *history.Record }

func (d recordDetail) Table() cli.Table {
	t := cli.Table{Headers: []string{"CHANNEL", "PREDICTION", "CONFIDENCE", "FAKE", "REAL"}}
	for _, res := range d.Results {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(res.Channel),
			string(res.Label),
			cli.FormatPercent(res.Confidence),
			cli.FormatProb(res.FakeProb),
			cli.FormatProb(res.RealProb),
		})
	}
	return t
}
