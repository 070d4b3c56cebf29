// Command lockcheck is a static lock-discipline checker for this kernel's
// big-kernel-lock-adjacent packages (spec.md §7): it flags exported
// methods on a mutex-guarded struct that touch a sibling field without
// calling Lock/RLock anywhere in the method body. Grounded on biscuit's
// misc/depgraph/main.go (a small single-purpose static-analysis CLI over
// `go` tooling output) for the shape of a standalone analysis command,
// generalized here from shelling out to `go mod graph` to a real
// `golang.org/x/tools/go/analysis` pass over typed syntax via
// `golang.org/x/tools/go/packages`.
package main

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

// Analyzer reports methods that read or write a field of their receiver's
// struct without any call to Lock/RLock/Unlock/RUnlock appearing in the
// method body at all, when the struct has at least one sync.Mutex or
// sync.RWMutex field. This is a coarse, whole-body check — it does not
// attempt to prove a lock is held at every access, only that a method
// touching guarded state makes no locking call whatsoever, which is
// already the class of bug this kernel's single-big-lock packages
// (blkcache.Cache, proc.World/ReadyQueue/Processor) most need caught.
var Analyzer = &analysis.Analyzer{
	Name: "lockcheck",
	Doc:  "reports methods on a mutex-guarded struct that never call Lock/RLock",
	Run:  run,
}

func main() {
	singlechecker.Main(Analyzer)
}

func hasMutexField(t *types.Struct) bool {
	for i := 0; i < t.NumFields(); i++ {
		named, ok := t.Field(i).Type().(*types.Named)
		if !ok {
			continue
		}
		obj := named.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == "sync" &&
			(obj.Name() == "Mutex" || obj.Name() == "RWMutex") {
			return true
		}
	}
	return false
}

func receiverStruct(fn *ast.FuncDecl, info *types.Info) (*types.Struct, bool) {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return nil, false
	}
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	tv, ok := info.Types[expr]
	if !ok {
		return nil, false
	}
	named, ok := tv.Type.(*types.Named)
	if !ok {
		return nil, false
	}
	s, ok := named.Underlying().(*types.Struct)
	return s, ok
}

func bodyCallsLock(fn *ast.FuncDecl) bool {
	if fn.Body == nil {
		return true // nothing to check (declaration only)
	}
	found := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		switch sel.Sel.Name {
		case "Lock", "RLock", "Unlock", "RUnlock":
			found = true
		}
		return true
	})
	return found
}

func touchesOtherField(fn *ast.FuncDecl, info *types.Info) bool {
	recv := ""
	if names := fn.Recv.List[0].Names; len(names) > 0 {
		recv = names[0].Name
	}
	touches := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if sel.Sel.Name == "Lock" || sel.Sel.Name == "RLock" || sel.Sel.Name == "Unlock" || sel.Sel.Name == "RUnlock" {
			return true
		}
		id, ok := sel.X.(*ast.Ident)
		if !ok || recv == "" || id.Name != recv {
			return true
		}
		if s := info.Selections[sel]; s != nil && s.Kind() == types.FieldVal {
			touches = true
		}
		return true
	})
	return touches
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil || !fn.Name.IsExported() {
				continue
			}
			st, ok := receiverStruct(fn, pass.TypesInfo)
			if !ok || !hasMutexField(st) {
				continue
			}
			if bodyCallsLock(fn) {
				continue
			}
			if touchesOtherField(fn, pass.TypesInfo) {
				pass.Reportf(fn.Pos(), "%s touches guarded state without calling Lock/RLock", fn.Name.Name)
			}
		}
	}
	return nil, nil
}
