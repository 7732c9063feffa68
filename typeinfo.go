package main

import (
	"encoding/json"

	"github.com/indlang/indc/ast"
	"github.com/indlang/indc/reader"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

// typeInfo is the JSON blob embedded into every library build.
type typeInfo struct {
	Package   string            `json:"package"`
	Functions map[string]string `json:"functions"`
}

func signatureString(fn *ast.FuncDecl) string {
	params := ""
	for i, p := range fn.Params {
		if i > 0 {
			params += ", "
		}
		params += p.Name + ": " + p.Type.String()
	}
	prefix := ""
	if fn.Pure {
		prefix = "pure "
	}
	return prefix + "fn(" + params + ") -> " + fn.ReturnType.String()
}

// embedTypeInfo writes a JSON description of every top-level function in
// prog into an immutable __indc_typeinfo global, read back by `indc
// typeinfo` via reader.ReadTypeInfo.
func embedTypeInfo(m *ir.Module, prog *ast.Program, pkg string) {
	info := typeInfo{Package: pkg, Functions: map[string]string{}}
	for _, fn := range prog.Functions {
		info.Functions[fn.Name] = signatureString(fn)
	}

	data, err := json.Marshal(info)
	if err != nil {
		panic(err)
	}

	g := m.NewGlobalDef(reader.TypeInfoSymbol, constant.NewCharArray(append(data, 0)))
	g.Immutable = true
}

// ReadTypeInfo dlopens a compiled library and unmarshals its embedded
// typeInfo.
func ReadTypeInfo(path string) (typeInfo, error) {
	raw, err := reader.ReadTypeInfo(path)
	if err != nil {
		return typeInfo{}, err
	}
	var t typeInfo
	err = json.Unmarshal([]byte(raw), &t)
	return t, err
}
