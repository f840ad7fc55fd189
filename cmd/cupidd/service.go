package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts runApp to the kardianos/service lifecycle.
type program struct {
	cfgPath string
	logger  *slog.Logger
	cancel  context.CancelFunc
	done    chan error
}

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- runApp(ctx, p.cfgPath, p.logger)
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	p.cancel()
	return <-p.done
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service <install|uninstall|start|stop|run>",
		Short: "Manage cupidd as a system service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}

			// The service manager launches us with no working directory
			// guarantees, so the config path must be absolute.
			absCfg, err := filepath.Abs(cfgPath)
			if err != nil {
				return err
			}

			svcConfig := &service.Config{
				Name:        "cupidd",
				DisplayName: "Cupid chat backend",
				Description: "Dating-simulator chat backend with conversation compaction",
				Arguments:   []string{"service", "run", "--config", absCfg},
			}
			prg := &program{cfgPath: absCfg, logger: logger}
			svc, err := service.New(prg, svcConfig)
			if err != nil {
				return err
			}

			switch args[0] {
			case "install":
				if err := svc.Install(); err != nil {
					return err
				}
				fmt.Println("service installed")
			case "uninstall":
				if err := svc.Uninstall(); err != nil {
					return err
				}
				fmt.Println("service uninstalled")
			case "start":
				if err := svc.Start(); err != nil {
					return err
				}
				fmt.Println("service started")
			case "stop":
				if err := svc.Stop(); err != nil {
					return err
				}
				fmt.Println("service stopped")
			case "run":
				return svc.Run()
			default:
				fmt.Fprintf(os.Stderr, "unknown action %q\n", args[0])
				return cmd.Usage()
			}
			return nil
		},
	}
	return cmd
}
