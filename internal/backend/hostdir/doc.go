/*
Package hostdir implements the host-directory archive backend family.
One archive maps a guest-visible tree onto a directory of the host
filesystem, with guest paths sanitized so they can never escape the
root. This is the backend behind the removable-media archives (SDMC and
its write-restricted variant) and the building block the container
backends (save data, extended data) mount their trees with.
*/
package hostdir
