package registry

import (
	"fmt"
	"strings"
)

// resolveTypeName finds the symbol a type reference names, following protobuf
// scoping: a leading dot means fully qualified; otherwise the innermost
// enclosing scope is tried first, then each outer scope, then the bare name.
// See the type_name comment in google/protobuf/descriptor.proto.
func resolveTypeName(name, scope string, symbols map[string]struct{}) (string, error) {
	if strings.HasPrefix(name, ".") {
		qualified := name[1:]
		if _, ok := symbols[qualified]; ok {
			return qualified, nil
		}
		return "", fmt.Errorf("unable to resolve fully qualified type name: %s", name)
	}

	for scope != "" {
		if candidate := scope + "." + name; hasSymbol(symbols, candidate) {
			return candidate, nil
		}
		i := strings.LastIndex(scope, ".")
		if i < 0 {
			break
		}
		scope = scope[:i]
	}
	if hasSymbol(symbols, name) {
		return name, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", name)
}

func hasSymbol(symbols map[string]struct{}, name string) bool {
	_, ok := symbols[name]
	return ok
}

// unquote strips the quotes around a .proto string constant
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
