// Package knet defines the socket surface this kernel exposes to
// networking syscalls, grounded on the smoltcp-based net_manager.rs and
// socket/{tcp,udp,icmp}.rs: a small Socket interface plus a loopback-only
// implementation (no real device driver, matching spec's "loopback/
// virtio networking stack integration" framing), enough to exercise a
// send/recv contract without bringing in a real packet-processing stack.
package knet

import (
	"errors"
	"sync"
)

var (
	ErrClosed     = errors.New("knet: socket closed")
	ErrNoListener = errors.New("knet: no listener on that port")
)

// Socket is the datagram-oriented surface both the UDP and loopback
// ICMP-echo paths in the original reduce to: address the destination
// explicitly on every send, receive whatever arrives regardless of its
// source.
type Socket interface {
	LocalPort() uint16
	SendTo(port uint16, payload []byte) error
	Recv() (payload []byte, fromPort uint16, err error)
	Close() error
}

type datagram struct {
	payload []byte
	from    uint16
}

// LoopbackSocket is a Socket bound to one local port within a single
// Network, matching the original's loopback-only device: every
// SendTo to a port bound by some other LoopbackSocket on the same
// Network is delivered in-process, with no serialization or real wire
// format involved.
type LoopbackSocket struct {
	net  *Network
	port uint16

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []datagram
	closed bool
}

// Close unbinds the socket from its Network and wakes any blocked Recv.
func (s *LoopbackSocket) Close() error {
	s.net.unbind(s.port)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	return nil
}

func (s *LoopbackSocket) LocalPort() uint16 { return s.port }

// SendTo looks up the destination port's socket in the same Network and
// appends the payload to its queue, waking any blocked Recv on it.
func (s *LoopbackSocket) SendTo(port uint16, payload []byte) error {
	dst, ok := s.net.lookup(port)
	if !ok {
		return ErrNoListener
	}
	dst.mu.Lock()
	if dst.closed {
		dst.mu.Unlock()
		return ErrClosed
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	dst.queue = append(dst.queue, datagram{payload: cp, from: s.port})
	dst.mu.Unlock()
	dst.cond.Broadcast()
	return nil
}

// Recv blocks until a datagram arrives or the socket is closed.
func (s *LoopbackSocket) Recv() ([]byte, uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return nil, 0, ErrClosed
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return d.payload, d.from, nil
}

// Network is the loopback net_manager analogue: a registry of bound
// ports within one process, standing in for the smoltcp interface and
// its device driver.
type Network struct {
	mu      sync.Mutex
	sockets map[uint16]*LoopbackSocket
	nextEph uint16
}

// NewNetwork constructs an empty loopback network. Ephemeral ports
// (requested via Bind(0)) are handed out starting at 49152, the IANA
// dynamic/private range's first port.
func NewNetwork() *Network {
	return &Network{sockets: make(map[uint16]*LoopbackSocket), nextEph: 49152}
}

// Bind claims port (or an ephemeral one, if port == 0) and returns a
// socket bound to it. Binding an already-bound port fails.
func (n *Network) Bind(port uint16) (*LoopbackSocket, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if port == 0 {
		port = n.nextEph
		n.nextEph++
	}
	if _, taken := n.sockets[port]; taken {
		return nil, errors.New("knet: port already bound")
	}
	s := &LoopbackSocket{net: n, port: port}
	s.cond = sync.NewCond(&s.mu)
	n.sockets[port] = s
	return s, nil
}

func (n *Network) lookup(port uint16) (*LoopbackSocket, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.sockets[port]
	return s, ok
}

func (n *Network) unbind(port uint16) {
	n.mu.Lock()
	delete(n.sockets, port)
	n.mu.Unlock()
}
