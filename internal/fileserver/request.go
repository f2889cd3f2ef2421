package fileserver

import (
	"context"

	"github.com/marmos91/aund/internal/protocol/econet"
	"github.com/marmos91/aund/pkg/transport"
)

// Function codes.
const (
	FuncCLI         uint8 = 0
	FuncSave        uint8 = 1
	FuncLoad        uint8 = 2
	FuncExamine     uint8 = 3
	FuncCatHeader   uint8 = 4
	FuncLoadCommand uint8 = 5
	FuncOpen        uint8 = 6
	FuncClose       uint8 = 7
	FuncGetByte     uint8 = 8
	FuncPutByte     uint8 = 9
	FuncGetBytes    uint8 = 10
	FuncPutBytes    uint8 = 11
	FuncGetArgs     uint8 = 12
	FuncSetArgs     uint8 = 13
	FuncGetDiscs    uint8 = 14
	FuncGetUsersOn  uint8 = 15
	FuncGetTime     uint8 = 16
	FuncGetEOF      uint8 = 17
	FuncGetInfo     uint8 = 18
	FuncSetInfo     uint8 = 19
	FuncDelete      uint8 = 20
	FuncGetUEnv     uint8 = 21
	FuncSetOpt4     uint8 = 22
	FuncLogoff      uint8 = 23
	FuncGetUser     uint8 = 24
	FuncGetVersion  uint8 = 25
	FuncGetFree     uint8 = 26
	FuncCDirN       uint8 = 27
	FuncCreate      uint8 = 29
	FuncWhoAmI      uint8 = 32
)

// Command codes of replies. CC_DONE means no further action by the client.
const (
	ccDone  uint8 = 0
	ccSave  uint8 = 1
	ccLoad  uint8 = 2
	ccCat   uint8 = 3
	ccInfo  uint8 = 4
	ccLogon uint8 = 5
	ccSDisc uint8 = 6
	ccDir   uint8 = 7
	ccUnrec uint8 = 8
	ccLib   uint8 = 9
	ccDiscs uint8 = 10
)

// DataPort is where clients send bulk data for SAVE and PUTBYTES.
const DataPort uint8 = 0x97

// headerSize is the fixed part of a request: reply port, function and the
// three handle slots.
const headerSize = 5

// request is one decoded file server request.
type request struct {
	ctx     context.Context
	from    transport.Addr
	session *Session
	fn      *fsFunction

	flag      uint8
	replyPort uint8
	function  uint8

	// raw holds the three slot bytes as received. Several functions use
	// them for ports or flags rather than handles.
	raw [3]uint8

	// urd, csd and lib are the slot bytes after invalid handles have been
	// zeroed.
	urd uint8
	csd uint8
	lib uint8

	body []byte
}

func parseRequest(pkt *transport.Packet, from transport.Addr) *request {
	var hdr [headerSize]byte
	copy(hdr[:], pkt.Data)

	req := &request{
		from:      from,
		flag:      pkt.Flag,
		replyPort: hdr[0],
		function:  hdr[1],
		raw:       [3]uint8{hdr[2], hdr[3], hdr[4]},
	}
	req.urd, req.csd, req.lib = hdr[2], hdr[3], hdr[4]
	if len(pkt.Data) > headerSize {
		req.body = pkt.Data[headerSize:]
	}
	return req
}

// reader returns a fresh reader over the request body.
func (r *request) reader() *econet.Reader {
	return econet.NewReader(r.body)
}

// path reads the CR-terminated path that makes up the rest of a body
// starting at offset.
func (r *request) path(offset int) string {
	if offset >= len(r.body) {
		return ""
	}
	rd := econet.NewReader(r.body[offset:])
	return rd.ReadString()
}

// checkHandles zeroes handle slots that do not name an open handle,
// following the slot usage of the request's function.
func (r *request) checkHandles() {
	ctx := ctxAll
	if r.fn != nil {
		ctx = r.fn.Context
	}
	s := r.session
	switch ctx {
	case ctxAll:
		r.urd = s.checkHandle(r.urd)
		r.csd = s.checkHandle(r.csd)
		r.lib = s.checkHandle(r.lib)
	case ctxDirs:
		r.csd = s.checkHandle(r.csd)
		r.lib = s.checkHandle(r.lib)
	case ctxHandle:
		r.csd = s.checkHandle(r.csd)
	}
}

// errorReply builds the payload of an error reply.
func errorReply(e *Error) []byte {
	w := econet.NewWriter(3 + len(e.Message))
	w.WriteUint8(ccDone)
	w.WriteUint8(e.Code)
	w.WriteString(e.Message)
	return w.Bytes()
}

// newReply starts a reply payload with command code cc.
func newReply(cc uint8, capacity int) *econet.Writer {
	w := econet.NewWriter(2 + capacity)
	w.WriteUint8(cc)
	w.WriteUint8(0)
	return w
}
