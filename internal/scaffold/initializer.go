// Package scaffold creates a starter sleuth project: a configuration file and an example case.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/sleuth/internal/config"
	"github.com/dyluth/sleuth/internal/printer"
	"github.com/dyluth/sleuth/internal/scenario"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	// ConfigFile is the configuration written by Initialize
	ConfigFile = "sleuth.yml"

	// CasesDir holds case definitions
	CasesDir = "cases"

	// ExampleCase is the example definition written into CasesDir
	ExampleCase = "example.yml"
)

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the project files under dir.
// If force is true, existing files are overwritten.
func Initialize(dir string, force bool) error {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return err
		}
	}

	files, err := getTemplateFiles(dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, CasesDir), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", CasesDir, err)
	}

	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedFiles(dir)
}

// getTemplateFiles reads the embedded templates and maps them to their destinations
func getTemplateFiles(dir string) ([]FileInfo, error) {
	sources := []struct {
		template string
		path     string
	}{
		{"templates/sleuth.yml.tmpl", filepath.Join(dir, ConfigFile)},
		{"templates/case.yml.tmpl", filepath.Join(dir, CasesDir, ExampleCase)},
	}

	files := make([]FileInfo, 0, len(sources))
	for _, src := range sources {
		content, err := templatesFS.ReadFile(src.template)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s template: %w", filepath.Base(src.path), err)
		}
		files = append(files, FileInfo{Path: src.path, Content: content, Permissions: 0644})
	}
	return files, nil
}

// validateCreatedFiles loads the written files the same way the CLI will
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, ConfigFile)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", ConfigFile, err)
	}

	def, err := scenario.Load(filepath.Join(dir, CasesDir, ExampleCase))
	if err != nil {
		return fmt.Errorf("created example case is invalid: %w", err)
	}
	if _, err := def.NewCase("00000000-0000-4000-8000-000000000000", time.Now()); err != nil {
		return fmt.Errorf("created example case is invalid: %w", err)
	}
	return nil
}

// PrintSuccess prints the created files and the next steps
func PrintSuccess() {
	printer.Success("Successfully initialized sleuth project!\n")
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", ConfigFile)
	printer.Printf("  ✓ %s\n", filepath.Join(CasesDir, ExampleCase))
	printer.Println("\nNext steps:")
	printer.Println("  1. Start Redis, or set SLEUTH_REDIS_URL")
	printer.Printf("  2. Create the example case: sleuth new -f %s\n", filepath.Join(CasesDir, ExampleCase))
	printer.Println("  3. Let the engine play it: sleuth solve <case-id>")
}
