// Package peer implements the decentralized UDP chat node: every node
// broadcasts to the subnet and listens on the same fixed port, holding
// its own copy of the recent history.
//
// History is replicated optimistically: a starting node adopts the
// first snapshot any peer answers with, and from then on mutates its
// copy only from broadcasts it observes. Username uniqueness is
// likewise best-effort: if no peer manages to answer a colliding
// announcement with a rejection first, the duplicate joins anyway.
package peer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"syscall"

	"lanchat/internal/chat"
	"lanchat/internal/netutil"
	"lanchat/pkg/protocol"
)

// DefaultPort is the fixed UDP chat port.
const DefaultPort = 5238

// ErrNameTaken reports that a peer rejected this node's username; the
// node has closed its transport and the session is over.
var ErrNameTaken = errors.New("peer: username already taken")

// Config configures a Node.
type Config struct {
	// Username announced to the network. Required.
	Username string

	// ListenAddr is the UDP bind address; ":5238" when empty.
	ListenAddr string

	// Broadcast is the send target for announcements and chat lines;
	// "255.255.255.255:<port>" when empty.
	Broadcast string

	// LocalIP is the identity used to recognize the node's own
	// looped-back announcements; detected when nil.
	LocalIP net.IP

	// Output receives formatted display lines; os.Stdout when nil.
	Output io.Writer
}

// Node is one UDP chat endpoint. A single goroutine inside Run handles
// every inbound datagram sequentially, so the history and the adoption
// latch need no locking; Send only ever transmits.
type Node struct {
	username  string
	conn      *net.UDPConn
	broadcast *net.UDPAddr
	localIP   net.IP
	port      int
	out       io.Writer

	history *chat.History
	newUser bool // still waiting to adopt a peer's history snapshot

	once sync.Once
}

// New binds the UDP socket with broadcast enabled.
func New(cfg Config) (*Node, error) {
	if cfg.Username == "" {
		return nil, errors.New("peer: username is required")
	}
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", DefaultPort)
	}
	bindAddr, err := net.ResolveUDPAddr("udp4", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp4", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", listenAddr, err)
	}
	if err := enableBroadcast(conn); err != nil {
		log.Printf("Failed to enable broadcast on socket: %v", err)
	}

	port := conn.LocalAddr().(*net.UDPAddr).Port
	target := cfg.Broadcast
	if target == "" {
		target = fmt.Sprintf("255.255.255.255:%d", port)
	}
	broadcast, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to resolve broadcast address: %w", err)
	}

	localIP := cfg.LocalIP
	if localIP == nil {
		localIP = netutil.OutboundIP()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	return &Node{
		username:  cfg.Username,
		conn:      conn,
		broadcast: broadcast,
		localIP:   localIP,
		port:      port,
		out:       out,
		history:   chat.NewHistory(),
		newUser:   true,
	}, nil
}

// Run announces the username, then processes datagrams one at a time
// until Close is called (returns nil) or a peer rejects the username
// (returns ErrNameTaken).
func (n *Node) Run() error {
	defer n.Close()

	if err := n.send(protocol.Announce{Username: n.username}, n.broadcast); err != nil {
		return err
	}

	buf := make([]byte, 64<<10)
	for {
		length, addr, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to read datagram: %w", err)
		}

		env, err := protocol.DecodeEnvelope(buf[:length])
		if err != nil {
			log.Printf("Dropping datagram from %s: %v", addr, err)
			continue
		}

		switch e := env.(type) {
		case protocol.NameTaken:
			log.Printf("Username %q is already taken on this network", n.username)
			return ErrNameTaken

		case protocol.HistorySync:
			// Only the first snapshot after announcing is adopted;
			// later replies are no-ops.
			if !n.newUser {
				continue
			}
			n.newUser = false
			n.history.Replace(e.History)
			for _, m := range n.history.Snapshot() {
				n.display(m)
			}

		case protocol.Announce:
			if n.isSelf(addr) {
				continue
			}
			var reply protocol.Envelope
			if e.Username != n.username {
				reply = protocol.HistorySync{
					Username: n.username,
					History:  n.history.Snapshot(),
				}
			} else {
				reply = protocol.NameTaken{}
			}
			if err := n.send(reply, addr); err != nil {
				log.Printf("Failed to answer announce from %s: %v", addr, err)
			}

		case protocol.ChatBroadcast:
			// Stamped with the receiver's clock; peers may display
			// slightly different times for the same line.
			m := protocol.NewMessage(e.Username, e.Text)
			n.history.Append(m)
			n.display(m)
		}
	}
}

// LocalAddr returns the bound UDP address.
func (n *Node) LocalAddr() *net.UDPAddr {
	return n.conn.LocalAddr().(*net.UDPAddr)
}

// Send broadcasts a user-entered line to every peer, this node
// included via loopback.
func (n *Node) Send(text string) error {
	return n.send(protocol.ChatBroadcast{Username: n.username, Text: text}, n.broadcast)
}

// Close releases the transport; a Run blocked on receive returns.
func (n *Node) Close() error {
	var err error
	n.once.Do(func() {
		err = n.conn.Close()
	})
	return err
}

func (n *Node) send(e protocol.Envelope, addr *net.UDPAddr) error {
	data, err := protocol.EncodeEnvelope(e)
	if err != nil {
		return err
	}
	if _, err := n.conn.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("failed to send %s: %w", e.Tag(), err)
	}
	return nil
}

// isSelf reports whether a datagram is this node's own looped-back
// broadcast.
func (n *Node) isSelf(addr *net.UDPAddr) bool {
	return addr.Port == n.port && addr.IP.Equal(n.localIP)
}

func (n *Node) display(m protocol.Message) {
	fmt.Fprintln(n.out, m.Display())
}

// enableBroadcast sets SO_BROADCAST so sends to the broadcast address
// are permitted.
func enableBroadcast(conn *net.UDPConn) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return serr
}
