package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bookd/internal/monitor"
	"bookd/internal/netsim"
	"bookd/internal/protocol"
	"bookd/internal/semantics"
	"bookd/internal/server"
	"bookd/internal/store"
	"bookd/internal/testutil/testlog"
)

func startServer(t *testing.T, sem byte, lossRate float64, seed int64) *server.Server {
	t.Helper()
	testlog.Start(t)
	st := store.New(seed)
	for _, name := range []string{"RoomA", "RoomB", "LT1"} {
		st.Add(name)
	}
	srv, err := server.Listen(0, server.Options{
		Semantics: sem,
		Store:     st,
		Dropper:   netsim.NewDropper(lossRate, seed),
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("server listen: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Run(context.Background())
	}()
	t.Cleanup(func() {
		srv.Close()
		wg.Wait()
	})
	return srv
}

func dialTest(t *testing.T, srv *server.Server, sem byte, drop *netsim.Dropper) *Client {
	t.Helper()
	c, err := Dial("127.0.0.1", srv.Addr().Port, sem, drop, zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func confirmID(t *testing.T, rep *Reply) int64 {
	t.Helper()
	if rep.IsError {
		t.Fatalf("unexpected error reply: %s", rep.Text)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(rep.Text, "CONFIRM# "), 10, 64)
	if err != nil {
		t.Fatalf("bad confirm text %q: %v", rep.Text, err)
	}
	return id
}

func TestBookQueryCancelEndToEnd(t *testing.T) {
	srv := startServer(t, protocol.SemAMO, 0, 42)
	c := dialTest(t, srv, protocol.SemAMO, netsim.NewDropper(0, 777))

	rep, err := c.Book("RoomA", 0, 540, 630)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	id := confirmID(t, rep)

	rep, err = c.Book("RoomA", 0, 600, 660)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if !rep.IsError || rep.Text != "Unavailable in requested period" {
		t.Fatalf("conflict reply: %+v", rep)
	}

	rep, err = c.QueryBooking(id)
	if err != nil {
		t.Fatalf("query booking: %v", err)
	}
	if !strings.Contains(rep.Text, "Facility: RoomA") ||
		!strings.Contains(rep.Text, "Time: 09:00 - 10:30") {
		t.Fatalf("details: %q", rep.Text)
	}

	rep, err = c.Query("RoomA", "Mon")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(rep.Text, "Booked: 09:00-10:30") {
		t.Fatalf("availability: %q", rep.Text)
	}

	rep, err = c.Cancel(id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if rep.IsError || rep.Text != fmt.Sprintf("CANCELED# %d", id) {
		t.Fatalf("cancel reply: %+v", rep)
	}
}

func TestRetransmitUntilServerResponds(t *testing.T) {
	testlog.Start(t)
	// A hand-rolled endpoint that ignores the first two attempts, then
	// answers the third with the request's own id.
	fake, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("fake listen: %v", err)
	}
	defer fake.Close()

	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		for seen := 0; ; {
			n, from, err := fake.ReadFromUDP(buf)
			if err != nil {
				return
			}
			seen++
			if seen < 3 {
				continue
			}
			req, err := protocol.Unpack(buf[:n])
			if err != nil {
				return
			}
			reply, _ := protocol.Pack(&protocol.Message{
				Version:   protocol.Version,
				Semantics: req.Semantics,
				Opcode:    req.Opcode,
				RequestID: req.RequestID,
				Payload:   protocol.NewWriter().PutString("CANCELED# 1").Bytes(),
			})
			fake.WriteToUDP(reply, from)
			return
		}
	}()

	c, err := Dial("127.0.0.1", fake.LocalAddr().(*net.UDPAddr).Port,
		protocol.SemAMO, netsim.NewDropper(0, 1), zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	c.timeout = 50 * time.Millisecond

	rep, err := c.Cancel(1)
	if err != nil {
		t.Fatalf("expected success after retransmits: %v", err)
	}
	if rep.Text != "CANCELED# 1" {
		t.Fatalf("reply: %+v", rep)
	}
}

func TestNoReplyAfterAllRetries(t *testing.T) {
	testlog.Start(t)
	fake, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("fake listen: %v", err)
	}
	defer fake.Close()

	c, err := Dial("127.0.0.1", fake.LocalAddr().(*net.UDPAddr).Port,
		protocol.SemAMO, netsim.NewDropper(0, 1), zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	c.timeout = 20 * time.Millisecond

	_, err = c.Cancel(1)
	if !errors.Is(err, ErrNoReply) {
		t.Fatalf("expected ErrNoReply, got %v", err)
	}
}

func TestStrayDatagramsDiscarded(t *testing.T) {
	testlog.Start(t)
	fake, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("fake listen: %v", err)
	}
	defer fake.Close()

	go func() {
		buf := make([]byte, protocol.MaxDatagram)
		n, from, err := fake.ReadFromUDP(buf)
		if err != nil {
			return
		}
		req, err := protocol.Unpack(buf[:n])
		if err != nil {
			return
		}
		// Garbage, then a stray reply id, then an unsolicited monitor
		// update, then the real reply.
		fake.WriteToUDP([]byte{0xde, 0xad}, from)
		stray, _ := protocol.Pack(&protocol.Message{
			Version: protocol.Version, Opcode: req.Opcode,
			RequestID: req.RequestID + 999,
			Payload:   protocol.NewWriter().PutString("stale").Bytes(),
		})
		fake.WriteToUDP(stray, from)
		update, _ := protocol.Pack(&protocol.Message{
			Version: protocol.Version, Opcode: protocol.OpMonitorUpdate,
			RequestID: req.RequestID,
			Payload: protocol.NewWriter().
				PutString("RoomA").PutString("text").Bytes(),
		})
		fake.WriteToUDP(update, from)
		real, _ := protocol.Pack(&protocol.Message{
			Version: protocol.Version, Opcode: req.Opcode,
			RequestID: req.RequestID,
			Payload:   protocol.NewWriter().PutString("CANCELED# 7").Bytes(),
		})
		fake.WriteToUDP(real, from)
	}()

	c, err := Dial("127.0.0.1", fake.LocalAddr().(*net.UDPAddr).Port,
		protocol.SemAMO, netsim.NewDropper(0, 1), zerolog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	rep, err := c.Cancel(7)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if rep.Text != "CANCELED# 7" {
		t.Fatalf("reply: %+v", rep)
	}
}

func TestLossyRequestPathStillBooksOnceUnderAMO(t *testing.T) {
	const lossRate, lossSeed = 0.5, 9
	// Probe the drop sequence: with this seed the retry budget must
	// contain at least one transmitted attempt for the test to be
	// meaningful.
	probe := netsim.NewDropper(lossRate, lossSeed)
	transmitted := false
	for i := 0; i < 8; i++ {
		if !probe.Drop() {
			transmitted = true
			break
		}
	}
	if !transmitted {
		t.Skip("seed drops every attempt in the budget")
	}

	srv := startServer(t, protocol.SemAMO, 0, 42)
	c := dialTest(t, srv, protocol.SemAMO, netsim.NewDropper(lossRate, lossSeed))
	c.timeout = 100 * time.Millisecond

	rep, err := c.Book("RoomB", 1, 840, 900)
	if err != nil {
		t.Fatalf("book under loss: %v", err)
	}
	confirmID(t, rep)

	// Exactly one booking exists despite the retransmissions.
	var count int
	srv.Inspect(func(st *store.Store, _ *monitor.Registry, _ *semantics.ReplyCache) {
		f, _ := st.Get("RoomB")
		count = f.BookingCount()
	})
	if count != 1 {
		t.Fatalf("bookings = %d, want 1", count)
	}
}

func TestMonitorListenReceivesUpdate(t *testing.T) {
	srv := startServer(t, protocol.SemAMO, 0, 42)
	watcher := dialTest(t, srv, protocol.SemAMO, netsim.NewDropper(0, 1))
	booker := dialTest(t, srv, protocol.SemAMO, netsim.NewDropper(0, 2))

	rep, err := watcher.MonitorRegister("RoomA", 3)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rep.IsError || rep.Text != "MONITORING# RoomA for 3s" {
		t.Fatalf("register reply: %+v", rep)
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		booker.Book("RoomA", 2, 600, 660)
	}()

	var mu sync.Mutex
	var got []string
	err = watcher.Listen(2*time.Second, func(facility, text string) {
		mu.Lock()
		got = append(got, facility+"\n"+text)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatalf("no monitor updates received")
	}
	last := got[len(got)-1]
	if !strings.Contains(last, "=== RoomA Status ===") ||
		!strings.Contains(last, "Booked: 10:00-11:00") {
		t.Fatalf("update text: %q", last)
	}
}
