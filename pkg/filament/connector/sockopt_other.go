//go:build !linux && !darwin

package connector

import "syscall"

// controlSocket is a no-op where the reuse options are either implicit or
// unavailable.
func controlSocket(network, address string, c syscall.RawConn) error {
	return nil
}
