package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hazcod/hearth/config"
	"github.com/hazcod/hearth/pkg/app"
	"github.com/hazcod/hearth/pkg/auth"
	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cli struct {
	logger   *logrus.Logger
	cfgPath  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd(logger *logrus.Logger) *cobra.Command {
	c := &cli{logger: logger}

	root := &cobra.Command{
		Use:           "hearthctl",
		Short:         "Inspect and operate a hearth household",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.cfgPath)
			if err != nil {
				return err
			}

			level := cfg.Log.Level
			if c.logLevel != "" {
				level = c.logLevel
			}
			parsed, err := logrus.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("error parsing log level: %w", err)
			}
			c.logger.SetLevel(parsed)

			c.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log", "", "log level")

	root.AddCommand(
		c.evaluateCmd(),
		c.collectCmd(),
		c.showCmd(),
		c.resetCmd(),
		hashPasswordCmd(),
	)

	return root
}

func (c *cli) withApp(fn func(a *app.App) error) error {
	a, err := app.New(c.logger, c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.WithError(err).Warn("error releasing resources")
		}
	}()

	return fn(a)
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v interface{}) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	return nil
}

func (c *cli) evaluateCmd() *cobra.Command {
	var baselinePath, samplePath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a visitor sample against a baseline, both read from JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			var baseline models.Baseline
			if err := readJSON(baselinePath, &baseline); err != nil {
				return err
			}

			var sample models.Sample
			if err := readJSON(samplePath, &sample); err != nil {
				return err
			}

			policy, err := verdict.NewPolicy(c.cfg.Policy.Type, c.cfg.PolicyOptions())
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), verdict.NewEngine(policy).Evaluate(baseline, sample))
		},
	}

	cmd.Flags().StringVar(&baselinePath, "baseline", "", "baseline JSON file")
	cmd.Flags().StringVar(&samplePath, "sample", "", "visitor sample JSON file")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("sample")

	return cmd
}

func (c *cli) collectCmd() *cobra.Command {
	var (
		in       collector.Input
		lat, lon float64
		accuracy float64
		typing   time.Duration
		enroll   bool
		verify   bool
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect a sample from the given readings, optionally enrolling or verifying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if enroll && verify {
				return fmt.Errorf("--enroll and --verify are mutually exclusive")
			}

			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				in.Geolocation = &models.Geolocation{Latitude: lat, Longitude: lon, Accuracy: accuracy}
			}
			in.TypingElapsed = typing

			return c.withApp(func(a *app.App) error {
				attempt, err := a.Collector.Collect(cmd.Context(), in)
				if err != nil {
					return err
				}

				if !attempt.Ready() || (!enroll && !verify) {
					return printJSON(cmd.OutOrStdout(), attempt)
				}

				if enroll {
					baseline, err := a.Household.Enroll(cmd.Context(), a.HouseholdID, attempt.Sample)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), baseline)
				}

				result, err := a.Household.Verify(cmd.Context(), a.HouseholdID, attempt.Sample)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.UserAgent, "ua", "", "user agent string")
	flags.StringVar(&in.Resolution, "resolution", "", "screen resolution as WIDTHxHEIGHT")
	flags.StringVar(&in.RequestIP, "ip", "", "client address when ip_source is request")
	flags.StringVar(&in.TypedText, "typed", "", "text typed for the challenge phrase")
	flags.Float64Var(&lat, "lat", 0, "latitude")
	flags.Float64Var(&lon, "lon", 0, "longitude")
	flags.Float64Var(&accuracy, "accuracy", 0, "geolocation accuracy in meters")
	flags.DurationVar(&typing, "typing", 0, "time taken to submit the challenge phrase")
	flags.BoolVar(&enroll, "enroll", false, "save the sample as the household baseline")
	flags.BoolVar(&verify, "verify", false, "verify the sample against the household baseline")
	_ = cmd.MarkFlagRequired("ua")
	_ = cmd.MarkFlagRequired("typing")

	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the enrolled household baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				baseline, err := a.Household.Baseline(cmd.Context(), a.HouseholdID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), baseline)
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the household baseline so a new host can enroll",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				actor := "hearthctl"
				if user := os.Getenv("USER"); user != "" {
					actor = "hearthctl:" + user
				}

				if err := a.Household.Reset(household.WithActor(cmd.Context(), actor), a.HouseholdID); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "household %s reset\n", a.HouseholdID)
				return err
			})
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for the local admin provider",
		Args:  cobra.ExactArgs(1),
		// no config needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.GeneratePasswordHash(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
