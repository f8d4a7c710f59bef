package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tokibot/pkg/commands"
	"tokibot/pkg/config"
	"tokibot/pkg/cron"
	"tokibot/pkg/loader"
	"tokibot/pkg/logger"
	"tokibot/pkg/plugins"
)

var handlersDir string

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "Inspect and scaffold handler definitions",
}

var handlersInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in handler definitions to the handler directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveHandlersDir()
		if err != nil {
			return err
		}
		written, err := loader.WriteDefaults(dir, plugins.NewCatalog(plugins.Deps{}))
		for _, path := range written {
			fmt.Println("created", path)
		}
		if err != nil {
			return err
		}
		if len(written) == 0 {
			fmt.Println("All definitions already exist in", dir)
		}
		return nil
	},
}

var handlersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Load the handler directory and list what would be registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveHandlersDir()
		if err != nil {
			return err
		}
		return listHandlers(cmd.Context(), dir)
	},
}

func init() {
	handlersCmd.PersistentFlags().StringVar(&handlersDir, "dir", "", "handler directory (defaults to handlers.dir from config)")
	handlersCmd.AddCommand(handlersInitCmd)
	handlersCmd.AddCommand(handlersListCmd)
}

func resolveHandlersDir() (string, error) {
	if handlersDir != "" {
		return config.ExpandPath(handlersDir), nil
	}
	cfg, err := config.NewLoader().Load(configPath)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return config.ExpandPath(cfg.Handlers.Dir), nil
}

// jobCollector records the job set instead of scheduling it.
type jobCollector struct {
	jobs []commands.Job
}

func (c *jobCollector) Replace(jobs []commands.Job) error {
	c.jobs = jobs
	return nil
}

func listHandlers(ctx context.Context, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lcfg := logger.DefaultConfig()
	lcfg.Level = logger.LevelWarn
	log, err := logger.New(lcfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	registry := commands.NewRegistry()
	jobs := &jobCollector{}
	res, err := loader.New(log, dir, plugins.NewCatalog(plugins.Deps{}), registry, jobs, nil).Load(ctx)
	if err != nil {
		return err
	}

	source := dir
	if res.FromDefaults {
		source = "built-in definitions (" + dir + " not found)"
	}
	fmt.Printf("Handlers from %s\n\n", source)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tDETAILS")
	table := registry.Table()
	for _, c := range table.Commands() {
		details := "prefix " + string(c.Prefix)
		if c.AdminOnly {
			details += ", admin"
		}
		if c.VIPOnly {
			details += ", vip"
		}
		if len(c.Aliases) > 0 {
			details += fmt.Sprintf(", aliases %v", c.Aliases)
		}
		fmt.Fprintf(w, "command\t%s\t%s\n", c.Name, details)
	}
	for _, e := range table.Events() {
		fmt.Fprintf(w, "event\t%s\t%s\n", e.Name, e.Description)
	}
	for _, j := range jobs.jobs {
		tz := j.Timezone
		if tz == "" {
			tz = cron.DefaultTimezone
		}
		fmt.Fprintf(w, "cronjob\t%s\t%s (%s) chat %d\n", j.Name, j.Schedule, tz, j.ChatID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d commands, %d events, %d cronjobs, %d skipped\n", res.Commands, res.Events, res.Jobs, res.Skipped)
	return nil
}
