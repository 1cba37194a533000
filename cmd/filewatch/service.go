package main

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/kardianos/service"

	"filewatch/internal/orchestrator"
	"filewatch/internal/pipeline"
)

const (
	serviceName        = "filewatch"
	serviceDisplayName = "filewatch"
	serviceDescription = "Watches a directory and runs the configured processors on every new file."
)

// daemon runs a watch session for the lifetime of an OS service.
type daemon struct {
	orchestrator *orchestrator.Orchestrator

	mu       sync.Mutex
	pipeline *pipeline.Pipeline
}

func newDaemon(o *orchestrator.Orchestrator) *daemon {
	return &daemon{orchestrator: o}
}

// Start implements service.Interface. It attaches synchronously so that a
// bad watch root is reported to the service manager.
func (d *daemon) Start(s service.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.orchestrator.Logger().Info("service starting", "service", s.String(), "platform", s.Platform())
	p, err := d.orchestrator.StartWatch()
	if err != nil {
		return err
	}
	d.pipeline = p
	return nil
}

// Stop implements service.Interface.
func (d *daemon) Stop(s service.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.orchestrator.Logger().Info("service stopping", "service", s.String())
	if d.pipeline == nil {
		return nil
	}
	summary := d.orchestrator.StopWatch(d.pipeline)
	d.pipeline = nil
	d.orchestrator.Logger().Info("service stopped", "summary", summary.String())
	return nil
}

// newService binds d to the OS service manager. The installed service runs
// "filewatch service <configPath>".
func newService(d *daemon, configPath string) (service.Service, error) {
	return service.New(d, &service.Config{
		Name:        serviceName,
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
		Arguments:   []string{"service", configPath},
	})
}

func installService(s service.Service) error {
	if err := s.Install(); err != nil {
		if runtime.GOOS == "windows" {
			return fmt.Errorf("failed to install Windows service (requires administrator privileges): %w", err)
		}
		return fmt.Errorf("failed to install service: %w", err)
	}
	return nil
}

func uninstallService(s service.Service) error {
	status, err := s.Status()
	if err == nil && status == service.StatusRunning {
		if err := s.Stop(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
	}
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}
	return nil
}
