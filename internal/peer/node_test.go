package peer_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"regexp"
	"testing"
	"time"

	"lanchat/internal/peer"
	"lanchat/pkg/protocol"
)

// newProbe binds a loopback UDP socket standing in for a remote peer.
func newProbe(t *testing.T) *net.UDPConn {
	t.Helper()

	addr, err := net.ResolveUDPAddr("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	probe, err := net.ListenUDP("udp4", addr)
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	t.Cleanup(func() { probe.Close() })
	probe.SetDeadline(time.Now().Add(2 * time.Second))
	return probe
}

// startNode runs a node whose broadcasts land on the probe instead of
// the subnet. The returned channel carries Run's result.
func startNode(t *testing.T, probe *net.UDPConn, username string, out io.Writer) (*peer.Node, chan error) {
	t.Helper()

	node, err := peer.New(peer.Config{
		Username:   username,
		ListenAddr: "127.0.0.1:0",
		Broadcast:  probe.LocalAddr().String(),
		LocalIP:    net.IPv4(127, 0, 0, 1),
		Output:     out,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { node.Close() })

	done := make(chan error, 1)
	go func() { done <- node.Run() }()
	return node, done
}

func probeRead(t *testing.T, probe *net.UDPConn) (protocol.Envelope, *net.UDPAddr) {
	t.Helper()

	buf := make([]byte, 64<<10)
	length, addr, err := probe.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	env, err := protocol.DecodeEnvelope(buf[:length])
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	return env, addr
}

func probeSend(t *testing.T, probe *net.UDPConn, env protocol.Envelope, addr *net.UDPAddr) {
	t.Helper()

	data, err := protocol.EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope() error = %v", err)
	}
	if _, err := probe.WriteToUDP(data, addr); err != nil {
		t.Fatalf("WriteToUDP() error = %v", err)
	}
}

// expectAnnounce consumes the node's startup announcement.
func expectAnnounce(t *testing.T, probe *net.UDPConn, username string) *net.UDPAddr {
	t.Helper()

	env, addr := probeRead(t, probe)
	announce, ok := env.(protocol.Announce)
	if !ok {
		t.Fatalf("first datagram = %T, want Announce", env)
	}
	if announce.Username != username {
		t.Fatalf("announced username = %q, want %q", announce.Username, username)
	}
	return addr
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run() never returned")
		return nil
	}
}

func TestNode_AnnouncesOnStart(t *testing.T) {
	probe := newProbe(t)
	node, done := startNode(t, probe, "alice", io.Discard)

	expectAnnounce(t, probe, "alice")

	node.Close()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() after Close = %v, want nil", err)
	}
}

func TestNode_SendBroadcastsChatLine(t *testing.T) {
	probe := newProbe(t)
	node, _ := startNode(t, probe, "alice", io.Discard)

	expectAnnounce(t, probe, "alice")

	if err := node.Send("hello lan"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	env, _ := probeRead(t, probe)
	chat, ok := env.(protocol.ChatBroadcast)
	if !ok {
		t.Fatalf("datagram = %T, want ChatBroadcast", env)
	}
	if chat.Username != "alice" || chat.Text != "hello lan" {
		t.Errorf("broadcast = %+v, want alice/hello lan", chat)
	}
}

func TestNode_AdoptsOnlyTheFirstHistorySync(t *testing.T) {
	probe := newProbe(t)
	startNode(t, probe, "newcomer", io.Discard)

	nodeAddr := expectAnnounce(t, probe, "newcomer")

	first := protocol.HistorySync{
		Username: "veteran",
		History: []protocol.Message{
			{Timestamp: "10:00:00", Username: "veteran", Text: "welcome"},
		},
	}
	late := protocol.HistorySync{
		Username: "straggler",
		History: []protocol.Message{
			{Timestamp: "09:00:00", Username: "straggler", Text: "stale"},
		},
	}
	probeSend(t, probe, first, nodeAddr)
	probeSend(t, probe, late, nodeAddr)

	// Query the node's history through the protocol itself: an
	// announcement from a distinct username earns a snapshot reply.
	probeSend(t, probe, protocol.Announce{Username: "probe"}, nodeAddr)

	env, _ := probeRead(t, probe)
	sync, ok := env.(protocol.HistorySync)
	if !ok {
		t.Fatalf("reply = %T, want HistorySync", env)
	}
	if sync.Username != "newcomer" {
		t.Errorf("reply username = %q, want %q", sync.Username, "newcomer")
	}
	if len(sync.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(sync.History))
	}
	if sync.History[0] != first.History[0] {
		t.Errorf("history entry = %+v, want the first sync's %+v", sync.History[0], first.History[0])
	}
}

func TestNode_RejectsCollidingAnnounce(t *testing.T) {
	probe := newProbe(t)
	startNode(t, probe, "alice", io.Discard)

	nodeAddr := expectAnnounce(t, probe, "alice")

	probeSend(t, probe, protocol.Announce{Username: "alice"}, nodeAddr)

	env, _ := probeRead(t, probe)
	if _, ok := env.(protocol.NameTaken); !ok {
		t.Fatalf("reply = %T, want NameTaken", env)
	}
}

func TestNode_NameTakenEndsRun(t *testing.T) {
	probe := newProbe(t)
	_, done := startNode(t, probe, "alice", io.Discard)

	nodeAddr := expectAnnounce(t, probe, "alice")

	probeSend(t, probe, protocol.NameTaken{}, nodeAddr)

	if err := waitDone(t, done); !errors.Is(err, peer.ErrNameTaken) {
		t.Errorf("Run() = %v, want ErrNameTaken", err)
	}
}

func TestNode_DisplaysAndStoresBroadcasts(t *testing.T) {
	var out bytes.Buffer
	probe := newProbe(t)
	node, done := startNode(t, probe, "alice", &out)

	nodeAddr := expectAnnounce(t, probe, "alice")

	probeSend(t, probe, protocol.ChatBroadcast{Username: "bob", Text: "hi alice"}, nodeAddr)

	// Read the history back over the wire to confirm the append.
	probeSend(t, probe, protocol.Announce{Username: "probe"}, nodeAddr)
	env, _ := probeRead(t, probe)
	sync, ok := env.(protocol.HistorySync)
	if !ok {
		t.Fatalf("reply = %T, want HistorySync", env)
	}
	if len(sync.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(sync.History))
	}
	got := sync.History[0]
	if got.Username != "bob" || got.Text != "hi alice" {
		t.Errorf("stored message = %+v, want bob/hi alice", got)
	}
	// The receiver stamps the line with its own clock.
	if ok, _ := regexp.MatchString(`^\d{2}:\d{2}:\d{2}$`, got.Timestamp); !ok {
		t.Errorf("timestamp = %q, want HH:MM:SS", got.Timestamp)
	}

	node.Close()
	waitDone(t, done)

	line := out.String()
	if want := "bob: hi alice"; !bytes.Contains([]byte(line), []byte(want)) {
		t.Errorf("output = %q, want it to contain %q", line, want)
	}
}
