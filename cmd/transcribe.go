package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wensia/callscribe/internal/asr"
	"github.com/wensia/callscribe/internal/database"
	"github.com/wensia/callscribe/internal/services/batch"
	"github.com/wensia/callscribe/internal/services/credentials"
	"github.com/wensia/callscribe/internal/services/runs"
	"github.com/wensia/callscribe/internal/services/transcription"
)

// transcribeCmd runs one batch transcription pass over a time window
var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Run a batch transcription pass",
	Long: `Run one batch transcription pass over the call recording store.

Eligible recordings inside the time window are paged from storage, fanned
out to the configured ASR vendor under a concurrency bound, and persisted
with speaker-attributed transcripts. Records that already carry a terminal
transcript are skipped by default, so reruns over the same window only pick
up what previous runs left behind.`,
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().Uint("config-id", 0, "ASR credential profile id (required)")
	transcribeCmd.Flags().String("start", "", "window start, YYYY-MM-DD HH:mm or YYYY-MM-DD (required)")
	transcribeCmd.Flags().String("end", "", "window end, YYYY-MM-DD HH:mm or YYYY-MM-DD (required)")
	transcribeCmd.Flags().Bool("skip-existing", true, "skip records already completed or empty")
	transcribeCmd.Flags().Int("min-duration", 0, "minimum call duration in seconds")
	transcribeCmd.Flags().Int("batch-size", 0, "sub-batch size between lock renewals")
	transcribeCmd.Flags().Int("max-records", 0, "stop after this many successes (0 = unlimited)")
	transcribeCmd.Flags().Int("concurrency", 0, "in-flight record bound (0 = auto per vendor)")
	transcribeCmd.Flags().Int("qps", 0, "vendor rate budget for auto concurrency sizing")
	transcribeCmd.Flags().String("correct-table", "", "vendor replacement dictionary name (Volcengine)")

	_ = transcribeCmd.MarkFlagRequired("config-id")
	_ = transcribeCmd.MarkFlagRequired("start")
	_ = transcribeCmd.MarkFlagRequired("end")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	db, err := database.Initialize(viper.GetString("database.path"), viper.GetBool("database.verbose"))
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	httpClient := asr.NewHTTPClient(viper.GetDuration("asr.http_timeout"))
	defer httpClient.CloseIdleConnections()

	recordRepo := transcription.NewRepository(db.DB)
	credRepo := credentials.NewRepository(db.DB)
	service := transcription.NewService(recordRepo, credRepo, httpClient)

	params := paramsFromFlags(cmd)
	job := batch.NewJob(service, recordRepo, params, nil)

	report, runErr := job.Run(cmd.Context())

	// Persist the outcome even for failed runs; history is best-effort
	if report != nil {
		history := runs.NewService(runs.NewRepository(db.DB))
		if _, err := history.SaveReport(cmd.Context(), params.ASRConfigID, report); err != nil {
			log.Printf("[WARNING] Saving run history: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

// paramsFromFlags merges CLI flags over the viper-backed defaults
func paramsFromFlags(cmd *cobra.Command) batch.Params {
	params := batch.DefaultParams()
	params.SkipExisting = viper.GetBool("batch.skip_existing")
	params.MinDuration = viper.GetInt("batch.min_duration")
	params.BatchSize = viper.GetInt("batch.batch_size")
	params.MaxRecords = viper.GetInt("batch.max_records")
	params.Concurrency = viper.GetInt("batch.concurrency")
	params.QPS = viper.GetInt("batch.qps")
	params.PageSize = viper.GetInt("batch.page_size")
	params.ChannelNum = viper.GetInt("batch.channel_num")
	params.PollInterval = viper.GetDuration("asr.poll_interval")
	params.WaitTimeout = viper.GetDuration("asr.wait_timeout")

	configID, _ := cmd.Flags().GetUint("config-id")
	params.ASRConfigID = configID
	params.StartTime, _ = cmd.Flags().GetString("start")
	params.EndTime, _ = cmd.Flags().GetString("end")
	params.CorrectTableName, _ = cmd.Flags().GetString("correct-table")

	if cmd.Flags().Changed("skip-existing") {
		params.SkipExisting, _ = cmd.Flags().GetBool("skip-existing")
	}
	if cmd.Flags().Changed("min-duration") {
		params.MinDuration, _ = cmd.Flags().GetInt("min-duration")
	}
	if cmd.Flags().Changed("batch-size") {
		params.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	if cmd.Flags().Changed("max-records") {
		params.MaxRecords, _ = cmd.Flags().GetInt("max-records")
	}
	if cmd.Flags().Changed("concurrency") {
		params.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("qps") {
		params.QPS, _ = cmd.Flags().GetInt("qps")
	}

	// Guard against a zero poll interval sneaking in from config
	if params.PollInterval <= 0 {
		params.PollInterval = 4 * time.Second
	}

	return params
}
