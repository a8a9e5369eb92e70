package dashboard_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestModuleDependencies_SessionStorePresent(t *testing.T) {
	testModulePresence(t, "github.com/redis/go-redis/v9")
}

func TestModuleDependencies_UpstreamClientPresent(t *testing.T) {
	testModulePresence(t, "github.com/gofiber/fiber/v2")
}

func TestModuleDependencies_CLIPresent(t *testing.T) {
	testModulePresence(t, "github.com/spf13/cobra")
}

func TestModuleDependencies_ErrgroupPresent(t *testing.T) {
	testModulePresence(t, "golang.org/x/sync")
}

func TestModuleDependencies_PaginationPresent(t *testing.T) {
	testModulePresence(t, "github.com/simp-lee/pagination")
}

func TestPaginationAPI_NoHandRolledPageResult(t *testing.T) {
	t.Run("happy_repo_builds_pages_with_paginator", func(t *testing.T) {
		matches, err := findPageResultUsages(".")
		if err != nil {
			t.Fatalf("scan repository: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no hand-rolled page results, found in: %v", matches)
		}
	})

	t.Run("error_fixture_with_page_result_is_detected", func(t *testing.T) {
		fixture := `package pkg
func NewPageResult[T any](items []T, page, size, total int) *PageResult[T] { return nil }`
		if !hasPageResult(fixture) {
			t.Fatal("expected hand-rolled page result to be detected in fixture")
		}
	})
}

func TestModuleDependencies_PersistenceAndAuthAbsent(t *testing.T) {
	goMod, err := os.ReadFile("go.mod")
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	for _, module := range []string{
		"gorm.io/gorm",
		"github.com/simp-lee/jwt",
		"github.com/simp-lee/rbac",
	} {
		if moduleRequired(string(goMod), module) {
			t.Errorf("module %q should not be required", module)
		}
	}
}

func TestModuleDependencies_DirectRequiresAreImported(t *testing.T) {
	t.Run("happy_every_direct_require_is_imported", func(t *testing.T) {
		goMod, err := os.ReadFile("go.mod")
		if err != nil {
			t.Fatalf("read go.mod: %v", err)
		}
		imports, err := collectImports(".")
		if err != nil {
			t.Fatalf("scan repository: %v", err)
		}
		for _, module := range directRequires(string(goMod)) {
			if !importsModule(imports, module) {
				t.Errorf("direct require %q is not imported by any package", module)
			}
		}
	})

	t.Run("error_fixture_with_unused_require_is_detected", func(t *testing.T) {
		fixture := `module example.com/demo

go 1.25.0

require (
	github.com/gin-gonic/gin v1.11.0
	github.com/spf13/cobra v1.10.1
	golang.org/x/text v0.3.0 // indirect
)`
		imports := map[string]bool{"github.com/gin-gonic/gin/binding": true}
		var unused []string
		for _, module := range directRequires(fixture) {
			if !importsModule(imports, module) {
				unused = append(unused, module)
			}
		}
		if len(unused) != 1 || unused[0] != "github.com/spf13/cobra" {
			t.Fatalf("unused = %v, want [github.com/spf13/cobra]", unused)
		}
	})
}

func testModulePresence(t *testing.T, module string) {
	t.Helper()

	t.Run("happy_present_in_real_go_mod", func(t *testing.T) {
		goMod, err := os.ReadFile("go.mod")
		if err != nil {
			t.Fatalf("read go.mod: %v", err)
		}
		if !moduleRequired(string(goMod), module) {
			t.Fatalf("expected module %q to be present in go.mod", module)
		}
	})

	t.Run("error_missing_module_in_fixture", func(t *testing.T) {
		fixture := `module example.com/demo

go 1.25.0

require (
	github.com/gin-gonic/gin v1.11.0
)`
		if moduleRequired(fixture, module) {
			t.Fatalf("expected fixture to not contain module %q", module)
		}
	})
}

func moduleRequired(goModContent, module string) bool {
	re := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(module) + `\s+v\S+`)
	return re.MatchString(goModContent)
}

var requireLine = regexp.MustCompile(`(?m)^\s+(\S+)\s+v\S+(\s*//\s*indirect)?\s*$`)

// directRequires returns the module paths required without "// indirect".
func directRequires(goModContent string) []string {
	var modules []string
	for _, m := range requireLine.FindAllStringSubmatch(goModContent, -1) {
		if m[2] == "" {
			modules = append(modules, m[1])
		}
	}
	return modules
}

func importsModule(imports map[string]bool, module string) bool {
	for path := range imports {
		if path == module || strings.HasPrefix(path, module+"/") {
			return true
		}
	}
	return false
}

var importSpec = regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:[\w.]+\s+)?"([^"]+)"\s*$`)

// collectImports gathers the quoted import paths of every .go file under
// root, skipping reference and vendored trees.
func collectImports(root string) (map[string]bool, error) {
	imports := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		for _, m := range importSpec.FindAllStringSubmatch(string(b), -1) {
			imports[m[1]] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imports, nil
}

var pageResultSymbol = regexp.MustCompile(`\b(NewPageResult|NewPageMeta)\s*(\[[^\]]+\])?\s*\(|\btype\s+PageResult\b`)

func hasPageResult(content string) bool {
	return pageResultSymbol.MatchString(content)
}

// findPageResultUsages lists non-test .go files that build their own page
// envelope instead of using the paginator.
func findPageResultUsages(root string) ([]string, error) {
	matches := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		if hasPageResult(string(b)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
