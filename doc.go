/*
Package cobj implements dynamically-typed value containers: a single Object
type that is a Blank, a Vector, a Map, a String, a Double or a MemBlock, with
explicit ownership.

Format readers (see the cojson, cocsv, cohex, coa2l, coxml and coyaml
packages) build object graphs bottom-up, and analysis code reads them
top-down through borrowed references.

# Ownership

An object flows between places in exactly three ways:

1. Move. Adding an object to a container created with OwnValues moves it:
the object becomes attached, the container will destroy it, and the caller
must not destroy it or add it to another owning container. Violations panic.
If the add fails, nothing is moved.

2. Borrow. Get-style accessors return references owned by someone else.
Containers created without OwnValues hold borrowed references too, which
is how index maps over an existing graph are built.

3. Clone. Clone makes a deep copy that owns everything it holds, whatever
the flags of the source.

Every object is destroyed exactly once, either by Destroy or by the
container it has been moved into.

# Allocation failure

The only recoverable error is allocation failure. Objects created through a
*Quota are charged against its byte budget (handles, vector chunks, map
nodes, owned buffers); once the budget is exhausted, operations return an
*AllocError. Composite operations (Vector.Map, Vector.AppendFrom, Clone and
the readers) unwind partial work, so a failed operation leaves Quota.Used
where it was. Objects created by the package-level constructors are not
charged anywhere and cannot fail.

# Concurrency

Nothing here is synchronized. Build one graph per goroutine and hand it
over once it is complete.

# Binary encoding

Objects implement msgpack.CustomEncoder and msgpack.CustomDecoder:
Blank is nil, Double is a float64, String is str, MemBlock is bin, Vector is
an array, Map is a map with keys in ascending order.
*/
package cobj
