/*
Package archive implements the core of the filesystem service: the
factory registry mapping archive id codes to backend constructors, the
handle table tracking live opened archives, the handle-scoped operations
that route to the owning backend, and the maintenance operations over
save-data and extended-data containers.

There are no package-level singletons. A Manager is constructed
explicitly at subsystem start and threaded through every call, so tests
can run any number of independent filesystem contexts side by side.
*/
package archive
