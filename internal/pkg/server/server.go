package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

type Network uint8

const (
	NetworkTCP Network = iota
	NetworkTCP4
	NetworkUnix
)

func (n Network) String() string {
	switch n {
	case NetworkTCP:
		return "tcp"
	case NetworkTCP4:
		return "tcp4"
	case NetworkUnix:
		return "unix"
	default:
		return fmt.Sprintf("unknown (%d)", n)
	}
}

func NetworkFromString(str string) Network {
	switch strings.ToLower(str) {
	case "tcp":
		return NetworkTCP
	case "tcp4":
		return NetworkTCP4
	case "unix":
		return NetworkUnix
	default:
		return NetworkTCP
	}
}

const (
	defaultUnixSocketName = "word-frequency-"
	defaultUnixSocketPath = "/var/tmp"
)

var defaultUnixSocket = defaultUnixSocketPath + "/" + defaultUnixSocketName

var (
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidMessageSize = errors.New("invalid max message size")
)

type Option func(server *Server) error

func WithAddr(addr string) Option {
	return func(server *Server) error {
		server.addr = addr
		return nil
	}
}

func WithPort(port int) Option {
	return func(server *Server) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w %d", ErrInvalidPort, port)
		}
		server.port = port
		return nil
	}
}

func WithNetwork(net Network) Option {
	return func(server *Server) error {
		server.network = net
		return nil
	}
}

// WithListener serves on an already open listener, network and address
// options are then ignored.
func WithListener(listener net.Listener) Option {
	return func(server *Server) error {
		server.listener = listener
		return nil
	}
}

// WithMaxMessageSize bounds the messages the server receives and sends,
// zero keeps the gRPC default of 4 MiB.
func WithMaxMessageSize(n int) Option {
	return func(server *Server) error {
		if n < 0 {
			return fmt.Errorf("%w %d", ErrInvalidMessageSize, n)
		}
		server.maxMessageSize = n
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(server *Server) error {
		server.logger = logger
		return nil
	}
}

type StopHookFunc func() error

// Server runs a gRPC server until its context ends, then stops it
// gracefully and runs the stop hook.
type Server struct {
	network        Network
	addr           string
	port           int
	maxMessageSize int
	listener       net.Listener
	server         *grpc.Server
	hook           StopHookFunc
	logger         zerolog.Logger
}

func New(opts ...Option) (*Server, error) {
	server := &Server{
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, err
		}
	}

	var serverOpts []grpc.ServerOption
	if server.maxMessageSize > 0 {
		serverOpts = append(serverOpts,
			grpc.MaxRecvMsgSize(server.maxMessageSize),
			grpc.MaxSendMsgSize(server.maxMessageSize),
		)
	}
	server.server = grpc.NewServer(serverOpts...)

	if server.addr == "" && server.network == NetworkUnix {
		server.addr = DefaultSocketName()
	}

	return server, nil
}

func (s *Server) Raw() *grpc.Server {
	return s.server
}

func (s *Server) StopHook(hookFunc StopHookFunc) {
	s.hook = hookFunc
}

// Address is the address the server listens on, or will listen on.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	if s.network == NetworkUnix {
		return s.addr
	}
	return net.JoinHostPort(s.addr, strconv.Itoa(s.port))
}

func (s *Server) listen() (net.Listener, error) {
	if s.listener != nil {
		return s.listener, nil
	}

	if s.network == NetworkUnix {
		// a socket left behind by an earlier run would fail the listen.
		if err := os.Remove(s.addr); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return net.Listen(s.network.String(), s.Address())
}

// Start serves until ctx is done or serving fails.
func (s *Server) Start(ctx context.Context) error {
	if s.hook == nil {
		s.hook = func() error {
			return nil
		}
	}

	listener, err := s.listen()
	if err != nil {
		return err
	}
	s.listener = listener

	served := make(chan error, 1)
	go func(server *grpc.Server, listener net.Listener) {
		served <- server.Serve(listener)
	}(s.server, s.listener)

	s.logger.Info().Str("network", s.network.String()).Str("address", s.Address()).Msg("server listen and serving")

	select {
	case err = <-served:
		s.logger.Error().Err(err).Msg("shutting down the gRPC server with unexpected error")
		_ = s.hook()
		return err
	case <-ctx.Done():
	}

	// graceful stop
	s.logger.Info().Msg("server shutting down")
	s.server.GracefulStop()
	<-served
	return s.hook()
}

func DefaultSocketName() string {
	n := defaultUnixSocket
	n += strconv.Itoa(os.Getuid())
	return n
}
