package capi

import (
	"strconv"
	"strings"

	"github.com/wippyai/wasm-guard/wasm"
)

// funcExportPrefix names the extra exports that make every function
// reachable by index. It is extended until no real export starts with it.
const funcExportPrefix = "__wasm_guard_func_"

func funcExportPrefixFor(m *wasm.Module) string {
	prefix := funcExportPrefix
	for {
		taken := false
		for _, exp := range m.Exports {
			if strings.HasPrefix(exp.Name, prefix) {
				taken = true
				break
			}
		}
		if !taken {
			return prefix
		}
		prefix += "_"
	}
}

func funcExportName(prefix string, funcIdx int) string {
	return prefix + strconv.Itoa(funcIdx)
}

// executable returns the binary actually compiled for instantiation:
// every function gets an export under prefix, and a memory without a
// maximum is capped at memoryPagesLimit so growth fails past it. Custom
// sections are dropped as in compilable.
func executable(m *wasm.Module, prefix string, memoryPagesLimit uint32) []byte {
	out := m.Clone()
	n := out.NumFuncs()
	for i := 0; i < n; i++ {
		out.Exports = append(out.Exports, wasm.Export{
			Name: funcExportName(prefix, i),
			Kind: wasm.KindFunc,
			Idx:  uint32(i),
		})
	}
	if len(out.Memories) == 1 && out.Memories[0].Limits.Max == nil {
		limit := memoryPagesLimit
		out.Memories[0].Limits.Max = &limit
	}
	out.CustomSections = nil
	return out.Encode()
}

// compilable returns m encoded without custom sections. Their contents
// never affect validity, but the compiler parses the "name" section.
func compilable(m *wasm.Module) []byte {
	out := m.Clone()
	out.CustomSections = nil
	return out.Encode()
}
