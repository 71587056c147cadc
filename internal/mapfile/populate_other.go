//go:build unix && !linux

package mapfile

const populateFlag = 0
