/*
Package session implements the per-open-file and per-open-directory
protocol objects of the filesystem service.

A session is created by opening a file or directory from an archive and
owns its backend object exclusively. It answers fixed-shape protocol
commands (opcode plus parameter words plus an optional data buffer) and
produces responses of a result word, result values and an optional
buffer. The shapes are part of the wire contract: a command with the
wrong parameter count is rejected without touching the backend.

Sessions are independent of the archive handle they were opened from;
closing the archive leaves its sessions fully functional, mirroring the
backend's own lifetime guarantees.
*/
package session
