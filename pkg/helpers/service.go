// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ServiceEntry starts the service and returns its stop function and a
// channel closed when the service ends on its own.
type ServiceEntry func() (stop func() error, done <-chan struct{}, err error)

// Service manages the background service process through a pid file.
type Service struct {
	fs      afero.Fs
	start   ServiceEntry
	stop    func() error
	tempDir string
	cfgPath string
}

type ServiceArgs struct {
	Fs      afero.Fs
	Entry   ServiceEntry
	TempDir string
	// CfgPath is handed to the background process through MINIDISPLAY_CFG
	// when set.
	CfgPath string
}

func NewService(args ServiceArgs) (*Service, error) {
	fs := args.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(args.TempDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &Service{
		fs:      fs,
		start:   args.Entry,
		tempDir: args.TempDir,
		cfgPath: args.CfgPath,
	}, nil
}

func (s *Service) pidPath() string {
	return filepath.Join(s.tempDir, PidFile)
}

func (s *Service) createPidFile() error {
	err := afero.WriteFile(s.fs, s.pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

func (s *Service) removePidFile() error {
	if err := s.fs.Remove(s.pidPath()); err != nil {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Pid returns the pid recorded by the running service, or 0.
func (s *Service) Pid() (int, error) {
	data, err := afero.ReadFile(s.fs, s.pidPath())
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// Running returns true if the recorded pid belongs to a live process.
func (s *Service) Running() bool {
	pid, err := s.Pid()
	if err != nil || pid == 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func (s *Service) stopService() error {
	log.Info().Msg("stopping service")

	if err := s.stop(); err != nil {
		log.Error().Err(err).Msg("error stopping service")
		return err
	}
	if err := s.removePidFile(); err != nil {
		log.Error().Err(err).Msg("error removing pid file")
		return err
	}
	return nil
}

// Run starts the service in this process and blocks until SIGINT or
// SIGTERM, or until the service stops by itself.
func (s *Service) Run() error {
	if s.Running() {
		return errors.New("service already running")
	}

	log.Info().Msg("starting service")
	if err := s.createPidFile(); err != nil {
		return err
	}

	stop, done, err := s.start()
	if err != nil {
		if rmErr := s.removePidFile(); rmErr != nil {
			log.Error().Err(rmErr).Msg("error removing pid file")
		}
		return fmt.Errorf("error starting service: %w", err)
	}
	s.stop = stop

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case sig := <-sigs:
		log.Info().Stringer("signal", sig).Msg("received signal")
	case <-done:
		log.Warn().Msg("service exited unexpectedly")
	}

	return s.stopService()
}

// Start launches the service as a background copy of this executable.
func (s *Service) Start() error {
	if s.Running() {
		return errors.New("service already running")
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("error getting absolute binary path: %w", err)
	}

	//nolint:gosec // runs this same executable
	cmd := exec.Command(exePath, "-service", "exec")
	cmd.Env = os.Environ()
	if s.cfgPath != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", config.CfgEnv, s.cfgPath))
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		log.Debug().Err(err).Msg("failed to release service process")
	}
	return nil
}

// Stop sends SIGTERM to the running service.
func (s *Service) Stop() error {
	if !s.Running() {
		return errors.New("service not running")
	}

	pid, err := s.Pid()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process: %w", err)
	}
	return nil
}

func (s *Service) Restart() error {
	if s.Running() {
		if err := s.Stop(); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for service to stop")
		}
		time.Sleep(200 * time.Millisecond)
	}

	return s.Start()
}

// ServiceHandler runs one of the -service subcommands.
func (s *Service) ServiceHandler(cmd string) error {
	switch cmd {
	case "exec":
		return s.Run()
	case "start":
		return s.Start()
	case "stop":
		return s.Stop()
	case "restart":
		return s.Restart()
	case "status":
		if s.Running() {
			_, _ = fmt.Println("started")
			return nil
		}
		_, _ = fmt.Println("stopped")
		return errors.New("service not running")
	case "":
		return nil
	default:
		return fmt.Errorf("unknown service argument: %s", cmd)
	}
}
