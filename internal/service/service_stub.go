//go:build !windows

// Package service provides Windows Service integration. This file is the
// non-Windows counterpart and exists so that cmd/agent builds everywhere:
// IsWindowsService always reports false, so Run is never reached in
// production, and installation is refused.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotSupported is returned by Install and Uninstall off Windows.
var ErrNotSupported = errors.New("service installation is only supported on Windows")

// AgentService mirrors the Windows wrapper's API.
type AgentService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a stub service wrapper.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *AgentService {
	return &AgentService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run executes the agent in the foreground until it returns.
func (s *AgentService) Run() error {
	s.startFn(context.Background())
	return nil
}

// Install always fails with ErrNotSupported. Use the platform's own service
// manager (systemd, launchd) to run the agent at boot.
func Install(exePath string, args ...string) error {
	return ErrNotSupported
}

// Uninstall always fails with ErrNotSupported.
func Uninstall() error {
	return ErrNotSupported
}
