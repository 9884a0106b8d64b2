package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"CapIot.telemetry/internal/config"
	tlog "CapIot.telemetry/internal/log"
	"CapIot.telemetry/internal/manager"
	"CapIot.telemetry/internal/models"
	"CapIot.telemetry/internal/repository"
	"CapIot.telemetry/internal/telemetry"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	debug       bool
	queryFlag   string
	periodFlag  string
	samplesFile string
	mgr         *manager.Manager
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "telemetry-smoke",
		Short:         "Exercise the metering API with the configured credentials",
		Version:       "metering API v" + telemetry.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if mgr != nil {
				mgr.Close()
			}
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log requests and responses")

	meters := &cobra.Command{
		Use:   "meters",
		Short: "List meters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(queryFlag)
			if err != nil {
				return err
			}
			return printList(mgr.TelemetryClient.ListMeters(cmd.Context(), q))
		},
	}

	resources := &cobra.Command{
		Use:   "resources",
		Short: "List resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(queryFlag)
			if err != nil {
				return err
			}
			return printList(mgr.TelemetryClient.ListResources(cmd.Context(), q))
		},
	}

	samples := &cobra.Command{
		Use:   "samples <meter>",
		Short: "List samples of a meter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(queryFlag)
			if err != nil {
				return err
			}
			return printList(mgr.TelemetryClient.ListSamples(cmd.Context(), args[0], q))
		},
	}

	statistics := &cobra.Command{
		Use:   "statistics <meter>",
		Short: "List statistics of a meter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(queryFlag)
			if err != nil {
				return err
			}
			return printList(mgr.TelemetryClient.ListStatistics(cmd.Context(), args[0], periodFlag, q))
		},
	}
	statistics.Flags().StringVar(&periodFlag, "period", "", "aggregation period in seconds")

	for _, c := range []*cobra.Command{meters, resources, samples, statistics} {
		c.Flags().StringVarP(&queryFlag, "query", "q", "", "filter as field,op,value")
	}

	resource := &cobra.Command{
		Use:   "resource <id>",
		Short: "Show a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printBody(mgr.TelemetryClient.ShowResource(cmd.Context(), args[0]))
		},
	}

	createSample := &cobra.Command{
		Use:   "create-sample <meter>",
		Short: "Post samples read from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(samplesFile)
			if err != nil {
				return errors.Wrap(err, "error reading samples file")
			}
			var list []models.Sample
			if err := json.Unmarshal(data, &list); err != nil {
				return errors.Wrap(err, "error parsing samples file")
			}
			return printBody(mgr.TelemetryClient.CreateSample(cmd.Context(), args[0], list))
		},
	}
	createSample.Flags().StringVarP(&samplesFile, "file", "f", "", "JSON file holding a list of samples")
	_ = createSample.MarkFlagRequired("file")

	root.AddCommand(meters, resources, samples, statistics, resource, createSample)
	return root
}

func setup(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "error loading configuration")
	}
	if err := tlog.SetLogLevel(cfg.LogLevel, debug); err != nil {
		return err
	}

	mgr, err = manager.New(config.CredentialsFromEnv(), cfg)
	if err != nil {
		return err
	}

	if mgr.Recorder != nil {
		if err := mgr.Recorder.Health(ctx); err != nil {
			return err
		}
		if err := repository.EnsureBucket(ctx, mgr.Recorder); err != nil {
			return err
		}
		log.Infof("Recording API calls to InfluxDB bucket %s", cfg.InfluxDBBucket)
	}
	return nil
}

func parseQuery(s string) (*models.Query, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("query must be field,op,value, got %q", s)
	}
	return models.NewQuery(parts[0], parts[1], parts[2]), nil
}

func printList(body *models.ResponseBodyList, err error) error {
	if err != nil {
		return err
	}
	return printJSON(body.Body)
}

func printBody(body *models.ResponseBody, err error) error {
	if err != nil {
		return err
	}
	return printJSON(body.Body)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
