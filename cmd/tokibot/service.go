package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"tokibot/pkg/config"
	"tokibot/pkg/logger"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage tokibot as a system service",
	Long: `Install and control tokibot as a system service.

Examples:
  sudo tokibot service install
  sudo tokibot service start
  sudo tokibot service status
  sudo tokibot service uninstall`,
}

func init() {
	actions := []struct {
		use, short string
		fn         func() error
	}{
		{"install", "Install the system service", InstallService},
		{"uninstall", "Uninstall the system service", UninstallService},
		{"start", "Start the system service", StartService},
		{"stop", "Stop the system service", StopService},
		{"restart", "Restart the system service", RestartService},
		{"status", "Show the system service status", StatusService},
	}
	for _, a := range actions {
		fn := a.fn
		serviceCmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return fn() },
		})
	}
}

// BotService implements service.Interface.
type BotService struct {
	app    *fx.App
	logger service.Logger
}

// NewBotService creates a new bot service.
func NewBotService() *BotService {
	return &BotService{}
}

// Start implements service.Interface.
func (s *BotService) Start(svc service.Service) error {
	if s.logger != nil {
		_ = s.logger.Info("Starting tokibot service")
	}

	s.app = fx.New(
		appOptions(),
		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.Info("tokibot service started", zap.String("mode", "daemon"))
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.Info("tokibot service stopped")
					return nil
				},
			})
		}),
		fx.NopLogger,
	)
	if err := s.app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.app.StartTimeout())
	defer cancel()
	return s.app.Start(ctx)
}

// Stop implements service.Interface.
func (s *BotService) Stop(svc service.Service) error {
	if s.logger != nil {
		_ = s.logger.Info("Stopping tokibot service")
	}
	if s.app == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.app.Stop(ctx); err != nil {
		if s.logger != nil {
			_ = s.logger.Errorf("Error stopping service: %v", err)
		}
		return err
	}
	return nil
}

// ServiceConfig returns the service configuration. An explicit config path
// is passed on to the service command line.
func ServiceConfig() *service.Config {
	args := []string{"run"}
	path := configPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ConfigPathEnv))
	}
	if path != "" {
		args = append([]string{"-c", path}, args...)
	}

	return &service.Config{
		Name:        "tokibot",
		DisplayName: "Tokibot",
		Description: "Tokibot Telegram command bot",
		Arguments:   args,
	}
}

func newService() (service.Service, *BotService, error) {
	prg := NewBotService()
	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("creating service: %w", err)
	}
	return s, prg, nil
}

func isInteractive() bool {
	return service.Interactive()
}

// InstallService installs the bot as a system service.
func InstallService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Install(); err != nil {
		return fmt.Errorf("installing service: %w", err)
	}

	fmt.Println("Service installed successfully!")
	fmt.Println("Use 'tokibot service start' to start the service")
	return nil
}

// UninstallService removes the system service.
func UninstallService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("uninstalling service: %w", err)
	}

	fmt.Println("Service uninstalled successfully!")
	return nil
}

// StartService starts the system service.
func StartService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}

	fmt.Println("Service started successfully!")
	return nil
}

// StopService stops the system service.
func StopService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Stop(); err != nil {
		return fmt.Errorf("stopping service: %w", err)
	}

	fmt.Println("Service stopped successfully!")
	return nil
}

// RestartService restarts the system service.
func RestartService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Restart(); err != nil {
		return fmt.Errorf("restarting service: %w", err)
	}

	fmt.Println("Service restarted successfully!")
	return nil
}

// StatusService prints the status of the system service.
func StatusService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("getting service status: %w", err)
	}

	fmt.Printf("Service Status: %s\n", statusString(status))
	return nil
}

func statusString(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Running"
	case service.StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// RunService runs the bot under the service manager.
func RunService() error {
	s, prg, err := newService()
	if err != nil {
		return err
	}
	svcLogger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = svcLogger

	if err := s.Run(); err != nil {
		_ = svcLogger.Error(err)
		return err
	}
	return nil
}
