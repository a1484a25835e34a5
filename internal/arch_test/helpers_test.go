package arch_test

import (
	"bytes"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
)

const modulePath = "github.com/papapumpkin/lanes"

// findRoot walks up from this file to the directory holding go.mod.
var findRoot = sync.OnceValues(func() (string, error) {
	_, here, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("runtime.Caller failed")
	}
	for dir := filepath.Dir(here); ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		up := filepath.Dir(dir)
		if up == dir {
			return "", errors.New("no go.mod above " + here)
		}
		dir = up
	}
})

func repoRoot(t *testing.T) string {
	t.Helper()
	root, err := findRoot()
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func internalDirPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "internal")
}

// internalPackages lists the directories under internal/ that hold Go
// source, other than this one.
func internalPackages(t *testing.T) []string {
	t.Helper()
	root := internalDirPath(t)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("reading %s: %v", root, err)
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "arch_test" && len(goFilesIn(t, filepath.Join(root, e.Name()))) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	return pkgs
}

// goFilesIn returns the non-test .go files of dir, sorted.
func goFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatalf("listing %s: %v", dir, err)
	}
	return slices.DeleteFunc(matches, func(p string) bool {
		return strings.HasSuffix(p, "_test.go")
	})
}

// parsedFile is one non-test source file of a package.
type parsedFile struct {
	path string
	fset *token.FileSet
	ast  *ast.File
}

func (f parsedFile) line(p token.Pos) int { return f.fset.Position(p).Line }

// rel is the file path from internal/ on, for messages.
func (f parsedFile) rel() string {
	if i := strings.Index(f.path, "internal"+string(filepath.Separator)); i >= 0 {
		return f.path[i:]
	}
	return filepath.Base(f.path)
}

// parseDir parses every non-test file of dir with mode.
func parseDir(t *testing.T, dir string, mode parser.Mode) []parsedFile {
	t.Helper()
	fset := token.NewFileSet()
	var out []parsedFile
	for _, p := range goFilesIn(t, dir) {
		f, err := parser.ParseFile(fset, p, nil, mode)
		if err != nil {
			t.Fatalf("parsing %s: %v", p, err)
		}
		out = append(out, parsedFile{path: p, fset: fset, ast: f})
	}
	return out
}

// packageVar is one name of a package-level var or const declaration.
type packageVar struct {
	name  *ast.Ident
	typ   ast.Expr // nil when inferred
	value ast.Expr // nil when zero-valued
	spec  *ast.ValueSpec
	decl  *ast.GenDecl
}

// valueDecls reports every name declared by a top-level GenDecl with token
// tok, pairing each name with its own initializer.
func valueDecls(f *ast.File, tok token.Token, fn func(packageVar)) {
	for _, d := range f.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != tok {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				v := packageVar{name: name, typ: vs.Type, spec: vs, decl: gd}
				if i < len(vs.Values) {
					v.value = vs.Values[i]
				}
				fn(v)
			}
		}
	}
}

// importsOf returns the internal packages imported by the non-test files of
// pkgDir, by first path element below internal/.
func importsOf(t *testing.T, pkgDir string) []string {
	t.Helper()
	prefix := modulePath + "/internal/"
	var out []string
	for _, f := range parseDir(t, pkgDir, parser.ImportsOnly) {
		for _, imp := range f.ast.Imports {
			p := strings.Trim(imp.Path.Value, `"`)
			rel, ok := strings.CutPrefix(p, prefix)
			if !ok {
				continue
			}
			first, _, _ := strings.Cut(rel, "/")
			out = append(out, first)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// lineCount counts lines, including a final line with no newline.
func lineCount(t *testing.T, filePath string) int {
	t.Helper()
	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("reading %s: %v", filePath, err)
	}
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// interfaceDecl is a named interface type and its method names.
type interfaceDecl struct {
	Name    string
	Pkg     string
	File    string
	Methods []string
}

func interfaceDecls(t *testing.T, filePath string) []interfaceDecl {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), filePath, nil, parser.SkipObjectResolution)
	if err != nil {
		t.Fatalf("parsing %s: %v", filePath, err)
	}
	var out []interfaceDecl
	ast.Inspect(f, func(n ast.Node) bool {
		if _, ok := n.(*ast.FuncDecl); ok {
			return false
		}
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		if it, ok := ts.Type.(*ast.InterfaceType); ok {
			d := interfaceDecl{Name: ts.Name.Name, Pkg: f.Name.Name, File: filePath}
			for _, m := range it.Methods.List {
				for _, name := range m.Names {
					d.Methods = append(d.Methods, name.Name)
				}
			}
			out = append(out, d)
		}
		return false
	})
	return out
}

// qualified renders pkg.Name selectors and bare identifiers; anything else
// renders empty.
func qualified(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.SelectorExpr:
		if pkg, ok := x.X.(*ast.Ident); ok {
			return pkg.Name + "." + x.Sel.Name
		}
	}
	return ""
}

func TestHelpersSeeTheTree(t *testing.T) {
	t.Parallel()
	dir := internalDirPath(t)

	pkgs := internalPackages(t)
	for _, want := range []string{"board", "store", "reconcile", "lifecycle", "config"} {
		if !slices.Contains(pkgs, want) {
			t.Errorf("internalPackages() = %v, missing %s", pkgs, want)
		}
	}
	if slices.Contains(pkgs, "arch_test") {
		t.Error("internalPackages() lists arch_test")
	}

	for _, f := range goFilesIn(t, filepath.Join(dir, "board")) {
		if strings.HasSuffix(f, "_test.go") {
			t.Errorf("goFilesIn returned test file %s", f)
		}
	}
	if imps := importsOf(t, filepath.Join(dir, "reconcile")); !slices.Contains(imps, "board") {
		t.Errorf("importsOf(reconcile) = %v, want board among them", imps)
	}
	if n := lineCount(t, filepath.Join(dir, "arch_test", "helpers_test.go")); n < 50 {
		t.Errorf("lineCount(helpers_test.go) = %d", n)
	}

	var engine *interfaceDecl
	for _, d := range interfaceDecls(t, filepath.Join(dir, "tui", "model.go")) {
		if d.Name == "Engine" {
			engine = &d
		}
	}
	if engine == nil || len(engine.Methods) == 0 {
		t.Errorf("tui.Engine = %+v, want an interface with methods", engine)
	}
}

func TestQualified(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"error":              "error",
		"sync.Mutex":         "sync.Mutex",
		"regexp.MustCompile": "regexp.MustCompile",
		"*T":                 "",
		"a.b.C":              "",
	}
	for src, want := range tests {
		e, err := parser.ParseExpr(src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", src, err)
		}
		if got := qualified(e); got != want {
			t.Errorf("qualified(%s) = %q, want %q", src, got, want)
		}
	}
}
