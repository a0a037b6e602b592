package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/export"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/handlers"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/logger"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/services"
)

type analyzeOptions struct {
	phone  string
	start  string
	end    string
	format string
	output string
}

func newAnalyzeCommand(configPath *string) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one conversation and print the result",
		Example: `  wa-analyzer analyze --phone "(11) 99999-9999"
  wa-analyzer analyze --phone 5511999999999 --format csv --output conversas.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				env.close(ctx)
			}()

			return runAnalyze(cmd.Context(), env, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.phone, "phone", "", "phone number of the conversation, in any format")
	cmd.Flags().StringVar(&opts.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.format, "format", handlers.FormatJSON, "output format: json, summary, csv, text or png")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (defaults to stdout)")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func runAnalyze(ctx context.Context, env *environment, opts analyzeOptions, stdout io.Writer) error {
	location := env.config.GetLocation()

	query, err := opts.query(location)
	if err != nil {
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RequestID: logger.Ptr(uuid.NewString()),
		Component: "analyzer.cli",
	})

	messageClient := services.NewMessageClient(env.config.Backend, env.logger)
	aggregator := services.NewAggregator(location, env.config.Analysis.MaxMessages)
	analyzer := services.NewConversationAnalyzer(messageClient, aggregator, env.config.Analysis.FilterByDate, env.logger)
	exporter := export.NewExporter(location)

	result, err := analyzer.AnalyzeConversation(ctx, query)
	if err != nil {
		env.logger.ErrorContext(ctx, "Failed to analyze conversation", "err", err.Error())
		return errors.New(services.UserMessage(err))
	}

	err = writeOutput(opts.output, stdout, func(w io.Writer) error {
		return writeResult(w, exporter, opts.format, result)
	})
	if err != nil {
		return err
	}

	env.logger.InfoContext(ctx, "Analysis written", "messages", result.MessageCount, "format", opts.format)

	return nil
}

// query validates the flags the same way the HTTP handler validates query parameters
func (o analyzeOptions) query(location *time.Location) (models.ConversationQuery, error) {
	var query models.ConversationQuery

	if !services.HasDigits(o.phone) {
		return query, fmt.Errorf("invalid phone: %q (must contain digits)", o.phone)
	}
	query.Phone = o.phone

	if !handlers.ValidFormats[o.format] {
		return query, fmt.Errorf("invalid format: %s (must be one of: json, summary, csv, text, png)", o.format)
	}

	var err error
	if query.Window.Start, err = parseFlagDate(o.start, location); err != nil {
		return query, fmt.Errorf("invalid start date: %w", err)
	}
	if query.Window.End, err = parseFlagDate(o.end, location); err != nil {
		return query, fmt.Errorf("invalid end date: %w", err)
	}
	if err := query.Window.Validate(); err != nil {
		return query, err
	}

	return query, nil
}

func parseFlagDate(value string, location *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(handlers.QueryDateLayout, value, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s (expected format: YYYY-MM-DD)", value)
	}
	return t, nil
}

// writeOutput runs write against stdout, or against the file at path when set.
// The file is closed before returning so a failed flush is reported.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	return nil
}

func writeResult(w io.Writer, exporter *export.Exporter, format string, result *models.AnalysisResult) error {
	switch format {
	case handlers.FormatSummary:
		return writeJSON(w, exporter.BuildReport(result))
	case handlers.FormatCSV:
		return exporter.WriteCSV(w, result)
	case handlers.FormatText:
		if err := exporter.WriteText(w, result); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	case handlers.FormatPNG:
		return exporter.WriteActivityChart(w, result)
	default:
		return writeJSON(w, result)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
