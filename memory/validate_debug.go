//go:build debug_vecmem

package memory

// DebugValidate calls Validate on v and panics if it returns an error. This
// is a no-op unless the debug_vecmem build tag is present, so production
// builds never pay for it.
func DebugValidate(v Validatable) {
	if err := v.Validate(); err != nil {
		panic(err)
	}
}
