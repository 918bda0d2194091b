//go:build !unix

package localfs

func isEXDEV(error) bool { return false }
