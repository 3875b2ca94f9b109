/*
Package types defines the shared data model of the citra-fs virtual
filesystem service: archive identifiers, guest paths, open modes, format
metadata, directory entries, and the capability interfaces every storage
backend family implements.

The guest never sees host paths. It addresses storage through an
ArchiveID selecting a backend family, an opaque Path interpreted by that
family, and numeric handles issued by the archive manager. Backends
(host-directory media, save-data containers, read-only container images,
remote object storage) all satisfy the same ArchiveBackend /
FileBackend / DirectoryBackend contracts and are produced by an
ArchiveFactory registered for their ArchiveID.
*/
package types
