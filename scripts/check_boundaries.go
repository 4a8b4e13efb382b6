// Command check_boundaries enforces the layering of every module under
// contexts/ and of the shared event contracts.
//
//	go run ./scripts/check_boundaries.go [-root .]
package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "profitshare"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists what a layer may import besides the standard library.
// Own-module prefixes are relative to the module directory.
type layerRule struct {
	ownLayers []string
	external  []string
}

var layerRules = map[string]layerRule{
	"domain": {
		ownLayers: []string{"domain"},
		external:  []string{"github.com/shopspring/decimal"},
	},
	"ports": {
		ownLayers: []string{"domain"},
		external: []string{
			modulePath + "/contracts",
			"github.com/shopspring/decimal",
		},
	},
	"application": {
		ownLayers: []string{"application", "domain", "ports"},
		external: []string{
			modulePath + "/contracts",
			"github.com/shopspring/decimal",
			"github.com/go-playground/validator/v10",
			"go.opentelemetry.io/otel",
			"golang.org/x/sync/errgroup",
			"golang.org/x/time/rate",
		},
	},
	"transport": {
		ownLayers: []string{"transport"},
	},
}

func main() {
	root := flag.String("root", ".", "repository root")
	flag.Parse()

	violations := collectViolations(*root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})

	fmt.Printf("%d boundary violation(s):\n", len(violations))
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation
	for _, dir := range []string{"contexts", "contracts"} {
		base := filepath.Join(root, dir)
		_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			violations = append(violations, checkFile(path, filepath.ToSlash(rel))...)
			return nil
		})
	}
	return violations
}

func checkFile(path string, rel string) []violation {
	imports, err := readImports(path)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	parts := strings.Split(rel, "/")
	if parts[0] == "contracts" {
		return checkContracts(rel, imports)
	}
	// contexts/<context>/<module>/<layer>/...
	if len(parts) < 4 {
		return nil
	}
	moduleDir := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
	layer := parts[3]

	var out []violation
	for _, imp := range imports {
		if hasPrefix(imp.path, modulePath+"/contexts") && !hasPrefix(imp.path, moduleDir) {
			out = append(out, imp.violation(rel, "cross-module imports are forbidden"))
		}
		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		if hasPrefix(imp.path, modulePath+"/internal") {
			out = append(out, imp.violation(rel, layer+" must not import runtime infrastructure"))
			continue
		}
		if strings.Contains(imp.path, "/adapters") {
			out = append(out, imp.violation(rel, layer+" must not import adapters"))
			continue
		}
		if isStdlib(imp.path) || allowed(imp.path, moduleDir, rule) {
			continue
		}
		out = append(out, imp.violation(rel, layer+" import is outside explicit allowlist"))
	}
	return out
}

func checkContracts(rel string, imports []importRef) []violation {
	var out []violation
	for _, imp := range imports {
		if hasPrefix(imp.path, modulePath) && !hasPrefix(imp.path, modulePath+"/contracts") {
			out = append(out, imp.violation(rel, "contracts must not depend on modules"))
		}
		if !isStdlib(imp.path) && !hasPrefix(imp.path, modulePath) {
			out = append(out, imp.violation(rel, "contracts stay dependency free"))
		}
	}
	return out
}

type importRef struct {
	path string
	line int
}

func (i importRef) violation(file string, rule string) violation {
	return violation{File: file, Line: i.line, Import: i.path, Rule: rule}
}

func readImports(path string) ([]importRef, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	refs := make([]importRef, 0, len(file.Imports))
	for _, imp := range file.Imports {
		refs = append(refs, importRef{
			path: strings.Trim(imp.Path.Value, "\""),
			line: fset.Position(imp.Pos()).Line,
		})
	}
	return refs, nil
}

func allowed(importPath string, moduleDir string, rule layerRule) bool {
	for _, layer := range rule.ownLayers {
		if hasPrefix(importPath, moduleDir+"/"+layer) {
			return true
		}
	}
	for _, prefix := range rule.external {
		if hasPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return first != modulePath && !strings.Contains(first, ".")
}
