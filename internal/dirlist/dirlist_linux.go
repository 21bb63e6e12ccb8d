//go:build linux

package dirlist

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// listRaw reads dirent64 records directly via getdents64, avoiding the
// per-entry Lstat that a portable readdir loop needs to recover the file
// type. Falls back to portableList if the raw read fails for any reason
// other than the directory itself being unopenable.
func listRaw(dir string) ([]rawEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fd := int(f.Fd())
	buf := make([]byte, 64*1024)
	var out []rawEntry

	for {
		n, err := unix.Getdents(fd, buf)
		if err != nil {
			// getdents64 isn't guaranteed on every filesystem (e.g. some
			// FUSE mounts); degrade to the portable path rather than fail
			// the whole directory scan.
			return portableList(dir)
		}
		if n == 0 {
			break
		}
		out = append(out, parseDirents(buf[:n])...)
	}
	return out, nil
}

// linuxDirent mirrors struct linux_dirent64 from <linux/dirent.h>:
//
//	u64  d_ino
//	s64  d_off
//	u16  d_reclen
//	u8   d_type
//	char d_name[]
type linuxDirent struct {
	Ino    uint64
	Off    int64
	Reclen uint16
	Type   uint8
}

const (
	dtDir = 4
	// direntHdr is the fixed-size portion of linux_dirent64 before the
	// flexible d_name array: 8 (ino) + 8 (off) + 2 (reclen) + 1 (type),
	// unpadded. unsafe.Sizeof(linuxDirent{}) would over-report this by
	// rounding the Go struct up to 8-byte alignment, so it is hardcoded.
	direntHdr = 19
)

func parseDirents(buf []byte) []rawEntry {
	var out []rawEntry
	off := 0
	for off < len(buf) {
		d := (*linuxDirent)(unsafe.Pointer(&buf[off]))
		reclen := int(d.Reclen)
		if reclen <= 0 || off+reclen > len(buf) {
			break
		}
		nameBytes := buf[off+direntHdr : off+reclen]
		// d_name is NUL-terminated within the padded record.
		nul := 0
		for nul < len(nameBytes) && nameBytes[nul] != 0 {
			nul++
		}
		name := string(nameBytes[:nul])
		off += reclen

		if name == "." || name == ".." {
			continue
		}
		out = append(out, rawEntry{Name: name, IsDir: d.Type == dtDir})
	}
	return out
}
