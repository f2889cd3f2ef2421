package fileserver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/protocol/econet"
	"github.com/marmos91/aund/pkg/metadata"
)

// Object types returned by GET_INFO.
const (
	typeNone uint8 = 0x00
	typeFile uint8 = 0x01
	typeDir  uint8 = 0x02
)

// Access bits.
const (
	AccessOR uint8 = 0x01
	AccessOW uint8 = 0x02
	AccessUR uint8 = 0x04
	AccessUW uint8 = 0x08
	AccessL  uint8 = 0x10
	AccessD  uint8 = 0x20
)

// deadMeta marks objects whose attributes could not be read.
var deadMeta = metadata.Meta{Load: 0xDEADDEAD, Exec: 0xDEADDEAD}

// objectInfo is everything a reply may say about one object.
type objectInfo struct {
	name  string
	meta  metadata.Meta
	size  int64
	mode  fs.FileMode
	ctime time.Time
	ok    bool
}

func (o objectInfo) access() uint8 {
	if !o.ok {
		return 0
	}
	return modeToAccess(o.mode)
}

func (o objectInfo) objType() uint8 {
	switch {
	case !o.ok:
		return typeNone
	case o.mode.IsDir():
		return typeDir
	default:
		return typeFile
	}
}

// statObject stats host, falling back to lstat for broken symlinks.
func statObject(host string) (os.FileInfo, error) {
	st, err := os.Stat(host)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return os.Lstat(host)
	}
	return st, err
}

// describe stats host and looks up its metadata.
func (s *Server) describe(ctx context.Context, host string) (objectInfo, error) {
	st, err := statObject(host)
	if err != nil {
		return objectInfo{meta: deadMeta}, err
	}
	return s.describeInfo(ctx, host, st), nil
}

func (s *Server) describeInfo(ctx context.Context, host string, st os.FileInfo) objectInfo {
	return objectInfo{
		name:  st.Name(),
		meta:  s.objectMeta(ctx, host, st),
		size:  st.Size(),
		mode:  st.Mode(),
		ctime: changeTime(st),
		ok:    true,
	}
}

// objectMeta returns recorded load/exec addresses, or synthesises a typed
// date stamp from the modification time.
func (s *Server) objectMeta(ctx context.Context, host string, st os.FileInfo) metadata.Meta {
	m, err := s.meta.Get(ctx, host)
	if err == nil {
		return m
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		logger.DebugCtx(ctx, "Metadata lookup failed", logger.Path(host), logger.Err(err))
	}
	if st == nil {
		return deadMeta
	}
	return defaultMeta(st.ModTime(), s.cfg.Typemap.Guess(st.Name(), st.Mode()))
}

func defaultMeta(mtime time.Time, fileType int) metadata.Meta {
	stamp := econet.RISCOSStamp(mtime)
	return metadata.Meta{
		Load: 0xFFF00000 | uint32(fileType&0xFFF)<<8 | uint32(stamp>>32)&0xFF,
		Exec: uint32(stamp),
	}
}

func modeToAccess(mode fs.FileMode) uint8 {
	var a uint8
	if mode&0o400 != 0 {
		a |= AccessUR
	}
	if mode&0o200 != 0 {
		a |= AccessUW
	}
	if mode&0o004 != 0 {
		a |= AccessOR
	}
	if mode&0o002 != 0 {
		a |= AccessOW
	}
	if mode.IsDir() {
		a |= AccessD
	}
	return a
}

// accessToMode converts Acorn access bits to permission bits. With
// userGroup set the group bits follow the owner bits, otherwise they
// follow the public bits.
func accessToMode(access uint8, userGroup bool) fs.FileMode {
	var m fs.FileMode
	if access&AccessUR != 0 {
		m |= 0o400
		if userGroup {
			m |= 0o040
		}
	}
	if access&AccessUW != 0 {
		m |= 0o200
		if userGroup {
			m |= 0o020
		}
	}
	if access&AccessOR != 0 {
		m |= 0o004
		if !userGroup {
			m |= 0o040
		}
	}
	if access&AccessOW != 0 {
		m |= 0o002
		if !userGroup {
			m |= 0o020
		}
	}
	return m
}

// accessString renders access bits the way *INFO and EXAMINE show them,
// e.g. "DLWR/WR".
func accessString(access uint8) string {
	b := make([]byte, 0, 7)
	if access&AccessD != 0 {
		b = append(b, 'D')
	}
	if access&AccessL != 0 {
		b = append(b, 'L')
	}
	if access&AccessUW != 0 {
		b = append(b, 'W')
	}
	if access&AccessUR != 0 {
		b = append(b, 'R')
	}
	b = append(b, '/')
	if access&AccessOW != 0 {
		b = append(b, 'W')
	}
	if access&AccessOR != 0 {
		b = append(b, 'R')
	}
	return string(b)
}
