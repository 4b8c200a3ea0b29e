package render

// refCount is the shared-ownership counter embedded in every resource.
// A resource starts with one reference owned by the caller of the
// factory; destroy runs exactly once, when the last reference goes.
// Access is single threaded like the rest of the package.
type refCount struct {
	n       int
	destroy func()
}

func (r *refCount) init(destroy func()) {
	r.n = 1
	r.destroy = destroy
}

// Retain adds a reference.
func (r *refCount) Retain() {
	if r.n <= 0 {
		panic(ErrReleased)
	}
	r.n++
}

// Release drops a reference, destroying the resource if it was the last.
// Releasing a destroyed resource panics.
func (r *refCount) Release() {
	if r.n <= 0 {
		panic(ErrReleased)
	}
	r.n--
	if r.n == 0 && r.destroy != nil {
		r.destroy()
	}
}

// RefCount returns the number of live references.
func (r *refCount) RefCount() int { return r.n }

func (r *refCount) alive() bool { return r.n > 0 }
