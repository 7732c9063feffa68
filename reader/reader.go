// Package reader dlopens a compiled shared object and reads back the
// typeinfo blob indc embeds into every `indc build --library` output.
package reader

import "C"

import "github.com/coreos/pkg/dlopen"

// TypeInfoSymbol is the name of the global indc embeds exported
// function signatures under (typeinfo.go's embedTypeInfo writes it).
const TypeInfoSymbol = "__indc_typeinfo"

// ReadTypeInfo dlopens the shared object at path and returns the
// null-terminated JSON string stored at TypeInfoSymbol.
func ReadTypeInfo(path string) (string, error) {
	handle, err := dlopen.GetHandle([]string{path})
	if err != nil {
		return "", err
	}
	defer handle.Close()

	sym, err := handle.GetSymbolPointer(TypeInfoSymbol)
	if err != nil {
		return "", err
	}

	return C.GoString((*C.char)(sym)), nil
}
