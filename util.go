package cobj

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

// Must panics if err is non-nil and returns o otherwise. It is meant for
// constructing objects under a quota that cannot run out.
func Must(o *Object, err error) *Object {
	return must(o, err)
}
