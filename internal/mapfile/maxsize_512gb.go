//go:build mips64 || mips64le

package mapfile

// MaxSize is the largest file Open will map.
const MaxSize = 0x8000000000 // 512GB
