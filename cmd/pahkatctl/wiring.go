package main

import (
	"fmt"
	"runtime"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/backend/macos"
	"github.com/divvun/pahkat-go/backend/prefix"
	"github.com/divvun/pahkat-go/backend/windows"
	"github.com/divvun/pahkat-go/config"
	"github.com/divvun/pahkat-go/metrics"
	"github.com/divvun/pahkat-go/store"
	"github.com/divvun/pahkat-go/syscmd"
)

func resolvePlatform() string {
	if flagPlatform != "" {
		return flagPlatform
	}
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	default:
		return "prefix"
	}
}

func resolveTarget() backend.Target {
	if flagTarget == "system" {
		return backend.TargetSystem
	}
	return backend.TargetUser
}

func buildStore() (*store.PackageStore, error) {
	var cfg *config.Store
	if flagConfigPath != "" {
		cfg = config.New(flagConfigPath, flagCachePath)
	} else {
		cfg = config.LoadOrDefault()
	}

	platform := resolvePlatform()
	runner := syscmd.NewExecRunner()

	var b backend.Backend
	switch platform {
	case "macos":
		b = macos.New(runner)
	case "windows":
		b = windows.New(runner, windows.SystemRegistryOpener{})
	case "prefix":
		prefixDir := flagCachePath
		if prefixDir == "" {
			prefixDir = cfg.PackageCachePath()
		}
		prefixBackend, err := prefix.New(prefixDir)
		if err != nil {
			return nil, fmt.Errorf("open prefix backend: %w", err)
		}
		b = prefixBackend
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	m := metrics.New()
	return store.New(cfg, b, platform, resolveTarget(), store.WithMetrics(m)), nil
}
