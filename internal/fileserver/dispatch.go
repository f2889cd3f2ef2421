package fileserver

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/telemetry"
	"github.com/marmos91/aund/pkg/transport"
)

// ============================================================================
// Function Table
// ============================================================================

// handleContext says which of the three header slots carry handles that
// must be validated before the handler runs.
type handleContext uint8

const (
	// ctxAll: urd, csd and lib are all handles.
	ctxAll handleContext = iota

	// ctxDirs: the urd slot carries a port, csd and lib are handles.
	ctxDirs

	// ctxHandle: the urd slot carries a port, csd the file handle and lib
	// a flag.
	ctxHandle

	// ctxNone: the slots carry no context at all.
	ctxNone
)

// fsFunction describes one file server function.
type fsFunction struct {
	// Name is the function name used in logs, spans and metrics.
	Name string

	// Handler processes the request and sends its replies. A returned
	// error becomes an error reply.
	Handler func(s *Server, req *request) error

	// NeedsLogin rejects the request with "Who are you?" before *I AM.
	NeedsLogin bool

	// Context selects which header slots are validated as handles.
	Context handleContext
}

var functions map[uint8]*fsFunction

func init() {
	functions = map[uint8]*fsFunction{
		FuncCLI: {
			Name:    "CLI",
			Handler: (*Server).handleCLI,
		},
		FuncSave: {
			Name:       "SAVE",
			Handler:    (*Server).handleSave,
			NeedsLogin: true,
			Context:    ctxDirs,
		},
		FuncLoad: {
			Name:       "LOAD",
			Handler:    (*Server).handleLoad,
			NeedsLogin: true,
			Context:    ctxDirs,
		},
		FuncExamine: {
			Name:       "EXAMINE",
			Handler:    (*Server).handleExamine,
			NeedsLogin: true,
		},
		FuncCatHeader: {
			Name:       "CAT_HEADER",
			Handler:    (*Server).handleCatHeader,
			NeedsLogin: true,
		},
		FuncLoadCommand: {
			Name:       "LOAD_COMMAND",
			Handler:    (*Server).handleLoadCommand,
			NeedsLogin: true,
			Context:    ctxDirs,
		},
		FuncOpen: {
			Name:       "OPEN",
			Handler:    (*Server).handleOpen,
			NeedsLogin: true,
		},
		FuncClose: {
			Name:       "CLOSE",
			Handler:    (*Server).handleClose,
			NeedsLogin: true,
		},
		FuncGetByte: {
			Name:       "GETBYTE",
			Handler:    (*Server).handleGetByte,
			NeedsLogin: true,
			Context:    ctxNone,
		},
		FuncPutByte: {
			Name:       "PUTBYTE",
			Handler:    (*Server).handlePutByte,
			NeedsLogin: true,
			Context:    ctxNone,
		},
		FuncGetBytes: {
			Name:       "GETBYTES",
			Handler:    (*Server).handleGetBytes,
			NeedsLogin: true,
			Context:    ctxHandle,
		},
		FuncPutBytes: {
			Name:       "PUTBYTES",
			Handler:    (*Server).handlePutBytes,
			NeedsLogin: true,
			Context:    ctxHandle,
		},
		FuncGetArgs: {
			Name:       "GET_ARGS",
			Handler:    (*Server).handleGetArgs,
			NeedsLogin: true,
		},
		FuncSetArgs: {
			Name:       "SET_ARGS",
			Handler:    (*Server).handleSetArgs,
			NeedsLogin: true,
		},
		FuncGetDiscs: {
			Name:    "GET_DISCS",
			Handler: (*Server).handleGetDiscs,
		},
		FuncGetUsersOn: {
			Name:    "GET_USERS_ON",
			Handler: (*Server).handleGetUsersOn,
		},
		FuncGetTime: {
			Name:    "GET_TIME",
			Handler: (*Server).handleGetTime,
		},
		FuncGetEOF: {
			Name:       "GET_EOF",
			Handler:    (*Server).handleGetEOF,
			NeedsLogin: true,
		},
		FuncGetInfo: {
			Name:       "GET_INFO",
			Handler:    (*Server).handleGetInfo,
			NeedsLogin: true,
		},
		FuncSetInfo: {
			Name:       "SET_INFO",
			Handler:    (*Server).handleSetInfo,
			NeedsLogin: true,
		},
		FuncDelete: {
			Name:       "DELETE",
			Handler:    (*Server).handleDelete,
			NeedsLogin: true,
		},
		FuncGetUEnv: {
			Name:       "GET_UENV",
			Handler:    (*Server).handleGetUEnv,
			NeedsLogin: true,
		},
		FuncSetOpt4: {
			Name:       "SET_OPT4",
			Handler:    (*Server).handleSetOpt4,
			NeedsLogin: true,
		},
		FuncLogoff: {
			Name:    "LOGOFF",
			Handler: (*Server).handleLogoff,
		},
		FuncGetUser: {
			Name:    "GET_USER",
			Handler: (*Server).handleGetUser,
		},
		FuncGetVersion: {
			Name:    "GET_VERSION",
			Handler: (*Server).handleGetVersion,
		},
		FuncGetFree: {
			Name:    "GET_FREE",
			Handler: (*Server).handleGetFree,
		},
		FuncCDirN: {
			Name:       "CDIRN",
			Handler:    (*Server).handleCDirN,
			NeedsLogin: true,
		},
		FuncCreate: {
			Name:       "CREATE",
			Handler:    (*Server).handleCreate,
			NeedsLogin: true,
		},
		FuncWhoAmI: {
			Name:       "WHO_AM_I",
			Handler:    (*Server).handleWhoAmI,
			NeedsLogin: true,
		},
	}
}

// ============================================================================
// Dispatch
// ============================================================================

// ServePacket handles one packet addressed to the file server port.
func (s *Server) ServePacket(ctx context.Context, pkt *transport.Packet, from transport.Addr) {
	if len(pkt.Data) < 2 {
		logger.Debug("Dropping runt file server packet",
			logger.Client(s.tr.AddressString(from)), logger.Bytes(len(pkt.Data)))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	req := parseRequest(pkt, from)
	req.fn = functions[req.function]

	req.session = s.registry.Find(from)
	if req.session == nil {
		req.session = s.registry.New(from)
		s.updateGauges()
	}
	req.session.touch(start)

	name := fmt.Sprintf("FUNC_%d", req.function)
	if req.fn != nil {
		name = req.fn.Name
	}
	client := s.tr.AddressString(from)

	lc := logger.NewLogContext(client).
		WithFunction(name).
		WithUser(req.session.Login).
		WithPort(transport.PortFileServer)
	ctx, span := telemetry.StartFSSpan(ctx, name, client,
		telemetry.Username(req.session.Login))
	defer span.End()
	if tid := telemetry.TraceID(ctx); tid != "" {
		lc = lc.WithTrace(tid, telemetry.SpanID(ctx))
	}
	req.ctx = logger.WithContext(ctx, lc)

	err := s.dispatch(req)

	var code uint8
	if err != nil {
		code = s.fail(req, err)
		telemetry.Fail(span, err)
		span.SetAttributes(telemetry.ErrorCode(code))
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(name, s.now().Sub(start), code)
		s.updateGauges()
	}
}

// dispatch runs the handler for req, converting a panic into an error.
func (s *Server) dispatch(req *request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(req.ctx, "Panic in file server handler",
				"panic", r, "stack", string(debug.Stack()))
			err = &Error{CodeGeneric, "Internal server error"}
		}
	}()

	if req.fn == nil {
		logger.DebugCtx(req.ctx, "Unknown file server function", "code", req.function)
		return ErrNotImplemented
	}

	req.checkHandles()

	if req.fn.NeedsLogin && !req.session.LoggedIn() {
		return ErrWhoAreYou
	}

	logger.DebugCtx(req.ctx, "FS request",
		logger.Handle(req.urd), "csd", req.csd, "lib", req.lib,
		logger.Bytes(len(req.body)))
	return req.fn.Handler(s, req)
}

// fail reports a handler error to the client and returns the error code
// sent. Transport failures are only logged: there is nobody to tell.
func (s *Server) fail(req *request, err error) uint8 {
	if errors.Is(err, transport.ErrNoAck) ||
		errors.Is(err, transport.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		logger.WarnCtx(req.ctx, "Request abandoned", logger.Err(err))
		return CodeGeneric
	}

	e := toError(err)
	if e.Code == CodeGeneric {
		logger.WarnCtx(req.ctx, "Request failed", logger.Err(err))
	} else {
		logger.DebugCtx(req.ctx, "Request failed",
			logger.ErrorCode(e.Code), logger.Err(err))
	}

	if sendErr := s.reply(req, errorReply(e)); sendErr != nil {
		logger.WarnCtx(req.ctx, "Failed to send error reply", logger.Err(sendErr))
	}
	return e.Code
}
