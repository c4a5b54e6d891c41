package python

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexSpace56/data-navigator/internal/errors"
	"github.com/alexSpace56/data-navigator/internal/logging"
)

//go:embed scripts/*
var scriptFiles embed.FS

const uvSyncTimeout = 10 * time.Minute

// FindUV locates the uv binary in PATH.
func FindUV() (string, error) {
	uvPath, err := exec.LookPath("uv")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeConfig, "uv not found in PATH").
			WithSuggestion("Install uv from https://docs.astral.sh/uv/getting-started/installation/").
			WithSuggestion("Or set DATA_NAVIGATOR_EMBEDDING_PROVIDER=openai")
	}

	return uvPath, nil
}

// DefaultCacheDir is where the Python project is extracted and synced
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "data-navigator")
	}

	return filepath.Join(os.TempDir(), "data-navigator")
}

// Environment prepares the embedded Python project once, on first use.
// Syncing can take minutes on a cold cache, so nothing happens at construction.
type Environment struct {
	cacheDir string

	once       sync.Once
	uvPath     string
	projectDir string
	err        error
}

// NewEnvironment creates a lazily prepared environment under cacheDir
func NewEnvironment(cacheDir string) *Environment {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	return &Environment{cacheDir: cacheDir}
}

// Prepare finds uv, extracts the scripts and installs dependencies
func (e *Environment) Prepare(ctx context.Context) (string, string, error) {
	e.once.Do(func() {
		e.uvPath, e.err = FindUV()
		if e.err != nil {
			return
		}

		e.projectDir, e.err = EnsureEnvironment(ctx, e.uvPath, e.cacheDir)
	})

	return e.uvPath, e.projectDir, e.err
}

// Command builds the command running scriptName inside the prepared project
func (e *Environment) Command(ctx context.Context, scriptName string, args ...string) (*exec.Cmd, error) {
	uvPath, projectDir, err := e.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	return RunScript(ctx, uvPath, projectDir, scriptName, args...), nil
}

// EnsureEnvironment extracts embedded Python scripts to cacheDir/python/ and
// runs uv sync to install dependencies. Returns the project directory.
func EnsureEnvironment(ctx context.Context, uvPath, cacheDir string) (string, error) {
	projectDir := filepath.Join(cacheDir, "python")

	if err := extractScripts(projectDir); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeFileSystem, "failed to extract Python scripts")
	}

	logging.WithField("project", projectDir).Info("Syncing Python embedding environment")

	if err := uvSync(ctx, uvPath, projectDir); err != nil {
		return "", err
	}

	return projectDir, nil
}

// RunScript builds an exec.Cmd that runs a Python script via uv.
func RunScript(ctx context.Context, uvPath, projectDir, scriptName string, args ...string) *exec.Cmd {
	scriptPath := filepath.Join(projectDir, scriptName)

	cmdArgs := []string{
		"run",
		"--project", projectDir,
		"--quiet",
		"python", scriptPath,
	}
	cmdArgs = append(cmdArgs, args...)

	return exec.CommandContext(ctx, uvPath, cmdArgs...)
}

// extractScripts writes the embedded files, leaving unchanged files untouched
func extractScripts(projectDir string) error {
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	return fs.WalkDir(scriptFiles, "scripts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel("scripts", path)
		if err != nil {
			return err
		}

		targetPath := filepath.Join(projectDir, relPath)

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0o755)
		}

		content, err := scriptFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded file %s: %w", path, err)
		}

		if existing, err := os.ReadFile(targetPath); err == nil && bytes.Equal(existing, content) {
			return nil
		}

		return os.WriteFile(targetPath, content, 0o644)
	})
}

func uvSync(ctx context.Context, uvPath, projectDir string) error {
	ctx, cancel := context.WithTimeout(ctx, uvSyncTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, uvPath, "sync", "--project", projectDir, "--quiet")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.ErrTypeTimeout, "uv sync timed out").
				WithSuggestion("The first run downloads torch and the model; retry with a warm cache")
		}

		return errors.Wrap(err, errors.ErrTypeEmbedding, "uv sync failed")
	}

	return nil
}
