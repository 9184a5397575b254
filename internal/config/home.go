package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetDroverHome returns the drover home directory
// Priority order:
//  1. DROVER_HOME environment variable (if set)
//  2. Drover repository root (detected by finding go.mod)
//  3. Current working directory (fallback)
//
// The directory is created if it doesn't exist
func GetDroverHome() (string, error) {
	// Try env var first
	if home := os.Getenv("DROVER_HOME"); home != "" {
		return home, nil
	}

	// Try to find drover repo root by looking for go.mod
	repoRoot, err := findDroverRepoRoot()
	if err == nil && repoRoot != "" {
		droverHome := filepath.Join(repoRoot, ".drover")
		// Ensure directory exists
		if err := os.MkdirAll(droverHome, 0755); err != nil {
			return "", fmt.Errorf("create drover home directory: %w", err)
		}
		return droverHome, nil
	}

	// Fallback to current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	droverHome := filepath.Join(cwd, ".drover")

	// Ensure directory exists
	if err := os.MkdirAll(droverHome, 0755); err != nil {
		return "", fmt.Errorf("create drover home directory: %w", err)
	}

	return droverHome, nil
}

// findDroverRepoRoot finds the drover repository root by looking for
// go.mod containing the drover module path, or a .drover-root marker
func findDroverRepoRoot() (string, error) {
	// Start from current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		// First check for .drover-root marker file (highest priority)
		markerPath := filepath.Join(current, ".drover-root")
		if _, err := os.Stat(markerPath); err == nil {
			return current, nil
		}

		// Check for go.mod with drover module path
		goModPath := filepath.Join(current, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if strings.Contains(string(data), "github.com/rowan/drover") {
				return current, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root
			break
		}
		current = parent
	}

	return "", fmt.Errorf("drover repository root not found (looking for .drover-root or go.mod with github.com/rowan/drover)")
}

// GetHistoryDBPath returns the absolute path to the run history database
// Always returns: $DROVER_HOME/history/runs.db
func GetHistoryDBPath() (string, error) {
	home, err := GetDroverHome()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, "history", "runs.db"), nil
}

// GetHistoryDir returns the history directory path
func GetHistoryDir() (string, error) {
	home, err := GetDroverHome()
	if err != nil {
		return "", err
	}

	historyDir := filepath.Join(home, "history")

	// Ensure directory exists
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return "", fmt.Errorf("create history directory: %w", err)
	}

	return historyDir, nil
}
