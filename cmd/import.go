package main

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadmail-cli/internal/model"
)

// importBatchSize bounds the number of rows per bulk insert.
const importBatchSize = 500

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a mailbox dump into the store",
	Long:  "Reads a JSON-lines file of email messages and inserts them idempotently. Re-importing the same dump never duplicates rows.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		f, err := os.Open(importFilePath)
		if err != nil {
			return eris.Wrap(err, "open import file")
		}
		defer f.Close()

		var (
			batch    []model.EmailMessage
			read     int
			written  int64
			badLines int
		)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := st.BulkImport(ctx, batch)
			if err != nil {
				return eris.Wrap(err, "bulk import")
			}
			written += n
			batch = batch[:0]
			return nil
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var msg model.EmailMessage
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				badLines++
				zap.L().Warn("skipping malformed line", zap.Int("line", read+badLines), zap.Error(err))
				continue
			}
			read++
			batch = append(batch, msg)
			if len(batch) >= importBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := scanner.Err(); err != nil {
			return eris.Wrap(err, "read import file")
		}
		if err := flush(); err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", importFilePath),
			zap.Int("read", read),
			zap.Int64("written", written),
			zap.Int64("duplicates", int64(read)-written),
			zap.Int("malformed", badLines),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to JSON-lines email dump (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
