//go:build !debug_vecmem

package memory

// DebugValidate no-ops unless the debug_vecmem build tag is present.
func DebugValidate(v Validatable) {
}
