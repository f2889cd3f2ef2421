package fileserver

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/protocol/econet"
)

// EXAMINE output formats.
const (
	examineAll      uint8 = 0
	examineLongText uint8 = 1
	examineName     uint8 = 2
	examineShort    uint8 = 3
)

// textEnd terminates a text-format listing.
const textEnd uint8 = 0x80

// dirEntry is one listed directory member.
type dirEntry struct {
	// name is the client-visible name.
	name string
	info objectInfo
}

// scanDir lists a directory in host name order. Hidden entries and
// entries that cannot be stat'ed are left out.
func (s *Server) scanDir(ctx context.Context, host string) ([]dirEntry, error) {
	des, err := os.ReadDir(host)
	if err != nil {
		return nil, err
	}

	entries := make([]dirEntry, 0, len(des))
	for _, de := range des {
		if _, ok := visibleName(de.Name()); !ok {
			continue
		}
		child := host + string(os.PathSeparator) + de.Name()
		st, err := os.Stat(child)
		if err != nil {
			logger.DebugCtx(ctx, "Skipping unreadable entry", logger.Path(child), logger.Err(err))
			continue
		}
		entries = append(entries, dirEntry{
			name: acornName(de.Name()),
			info: s.describeInfo(ctx, child, st),
		})
	}
	return entries, nil
}

// listing returns the entries of host from index start on. The session's
// cache is used when it holds the continuation of the same directory at
// the same index. Anything else rescans.
func (s *Server) listing(req *request, host string, start int) ([]dirEntry, error) {
	c := &req.session.dirCache
	hit := c.path == host && c.start == start
	if s.metrics != nil {
		s.metrics.RecordExamineCache(hit)
	}
	if hit {
		logger.DebugCtx(req.ctx, "Examine cache hit", logger.Path(host), logger.Offset(uint64(start)))
		return c.entries, nil
	}

	c.clear()
	if s.onScan != nil {
		s.onScan(host)
	}
	entries, err := s.scanDir(req.ctx, host)
	if err != nil {
		return nil, err
	}
	c.path = host
	if start >= len(entries) {
		return nil, nil
	}
	return entries[start:], nil
}

func (s *Server) handleExamine(req *request) error {
	rd := req.reader()
	arg := rd.ReadUint8()
	start := int(rd.ReadUint8())
	want := int(rd.ReadUint8())
	acorn := req.path(3)

	switch arg {
	case examineAll, examineLongText, examineName, examineShort:
	default:
		return ErrNotImplemented
	}

	_, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	entries, err := s.listing(req, host, start)
	if err != nil {
		return err
	}

	n := min(want, len(entries))
	w := newReply(ccDone, 2+n*27+1)
	w.WriteUint8(uint8(n))
	w.WriteUint8(0)
	for _, e := range entries[:n] {
		writeExamineEntry(w, arg, e)
	}
	if arg == examineLongText || arg == examineShort {
		w.WriteUint8(textEnd)
	}

	logger.DebugCtx(req.ctx, "Examine",
		logger.Acorn(acorn), logger.Offset(uint64(start)),
		logger.Count(uint32(n)), "format", arg)

	if err := s.reply(req, w.Bytes()); err != nil {
		return err
	}

	c := &req.session.dirCache
	if rest := entries[n:]; len(rest) > 0 {
		c.start = start + n
		c.entries = rest
	} else {
		c.clear()
	}
	return nil
}

func writeExamineEntry(w *econet.Writer, arg uint8, e dirEntry) {
	switch arg {
	case examineAll:
		w.WritePadded(e.name, 10)
		meta := e.info.meta.Bytes()
		w.WriteBytes(meta[:])
		w.WriteUint8(e.info.access())
		w.WriteDate(e.info.ctime)
		w.WriteVal(0, 3)
		w.WriteVal(uint64(e.info.size), 3)
	case examineName:
		w.WriteUint8(10)
		w.WritePadded(e.name, 10)
	case examineShort:
		w.WriteBytes([]byte(fmt.Sprintf("%-10.10s %-7.7s", e.name, accessString(e.info.access()))))
		w.WriteUint8(0)
	case examineLongText:
		w.WriteBytes([]byte(infoText(e.name, e.info)))
		w.WriteUint8(0)
	}
}

// handleCatHeader answers the catalogue header request with the
// directory's leaf name, its ownership and the disc name.
func (s *Server) handleCatHeader(req *request) error {
	acorn := req.path(0)
	rel, host, err := s.translate(req, acorn)
	if err != nil {
		return err
	}
	st, err := os.Stat(host)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return ErrNotDir
	}

	owner := "P"
	if isWithin(rel, req.session.URD) {
		owner = "O"
	}
	text := fmt.Sprintf("%-10.10s %s   %-16.16s", acornLeaf(rel), owner, s.cfg.DiscName)

	w := newReply(ccDone, len(text)+2)
	w.WriteString(text)
	w.WriteUint8(textEnd)
	return s.reply(req, w.Bytes())
}

// isWithin reports whether the root-relative path rel lies inside dir.
func isWithin(rel, dir string) bool {
	if dir == "." || rel == dir {
		return true
	}
	return len(rel) > len(dir) && rel[:len(dir)] == dir && rel[len(dir)] == '/'
}
