package util

// AssertNoError panics on error. Reserved for contract violations where the
// caller has already promised the inputs are valid; fallible paths return
// errors instead.
func AssertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
