//go:build !unix

package mapfile

import "os"

func mmap(*os.File, int, Options) ([]byte, error) {
	return nil, errNoMmap
}

func munmap([]byte) error {
	return nil
}
