package validator

import (
	"context"
	"crypto/x509"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"proxy_harvester/proxypool/model"
)

// socksServer is a minimal SOCKS4/SOCKS5 CONNECT server for tests. When reject is set it
// refuses every CONNECT request.
type socksServer struct {
	ln     net.Listener
	reject bool
	wg     sync.WaitGroup
}

func startSocksServer(t *testing.T, version byte, reject bool) *socksServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := &socksServer{ln: ln, reject: reject}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer conn.Close()
				if version == 4 {
					s.serveSocks4(conn)
				} else {
					s.serveSocks5(conn)
				}
			}()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *socksServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *socksServer) serveSocks4(conn net.Conn) {
	head := make([]byte, 8)
	if _, err := io.ReadFull(conn, head); err != nil || head[0] != 4 || head[1] != 1 {
		return
	}
	// user id, NUL terminated
	b := make([]byte, 1)
	for {
		if _, err := conn.Read(b); err != nil {
			return
		}
		if b[0] == 0 {
			break
		}
	}
	if s.reject {
		conn.Write([]byte{0, 0x5b, 0, 0, 0, 0, 0, 0})
		return
	}
	port := binary.BigEndian.Uint16(head[2:4])
	ip := net.IP(head[4:8])
	target, err := net.Dial("tcp", net.JoinHostPort(ip.String(), strconv.Itoa(int(port))))
	if err != nil {
		conn.Write([]byte{0, 0x5b, 0, 0, 0, 0, 0, 0})
		return
	}
	defer target.Close()
	conn.Write([]byte{0, 0x5a, 0, 0, 0, 0, 0, 0})
	pipe(conn, target)
}

func (s *socksServer) serveSocks5(conn net.Conn) {
	greeting := make([]byte, 2)
	if _, err := io.ReadFull(conn, greeting); err != nil || greeting[0] != 5 {
		return
	}
	methods := make([]byte, greeting[1])
	if _, err := io.ReadFull(conn, methods); err != nil {
		return
	}
	conn.Write([]byte{5, 0})

	req := make([]byte, 4)
	if _, err := io.ReadFull(conn, req); err != nil || req[1] != 1 {
		return
	}
	var host string
	switch req[3] {
	case 1:
		ip := make([]byte, 4)
		if _, err := io.ReadFull(conn, ip); err != nil {
			return
		}
		host = net.IP(ip).String()
	case 3:
		l := make([]byte, 1)
		if _, err := io.ReadFull(conn, l); err != nil {
			return
		}
		name := make([]byte, l[0])
		if _, err := io.ReadFull(conn, name); err != nil {
			return
		}
		host = string(name)
	default:
		return
	}
	portBytes := make([]byte, 2)
	if _, err := io.ReadFull(conn, portBytes); err != nil {
		return
	}
	port := binary.BigEndian.Uint16(portBytes)

	reply := func(code byte) {
		conn.Write([]byte{5, code, 0, 1, 0, 0, 0, 0, 0, 0})
	}
	if s.reject {
		reply(5) // connection refused
		return
	}
	target, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		reply(5)
		return
	}
	defer target.Close()
	reply(0)
	pipe(conn, target)
}

func pipe(a, b net.Conn) {
	done := make(chan struct{}, 2)
	go func() {
		io.Copy(a, b)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(b, a)
		done <- struct{}{}
	}()
	<-done
}

func newTarget(t *testing.T, status int) (*httptest.Server, func() string) {
	t.Helper()
	var mu sync.Mutex
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ua = r.Header.Get("User-Agent")
		mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(`{"origin": "127.0.0.1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() string {
		mu.Lock()
		defer mu.Unlock()
		return ua
	}
}

func newProber(t *testing.T, url string, timeout time.Duration, agents []string) *SocksProber {
	t.Helper()
	p, err := NewSocksProber(url, timeout, agents, FingerprintRandomized)
	if err != nil {
		t.Fatalf("NewSocksProber() returned an error: %v", err)
	}
	return p
}

func TestSocksProber_GoodThroughBothProtocols(t *testing.T) {
	target, ua := newTarget(t, http.StatusOK)
	agents := []string{"harvester-test-agent"}

	for _, tc := range []struct {
		protocol model.Protocol
		version  byte
	}{
		{model.Socks4, 4},
		{model.Socks5, 5},
	} {
		t.Run(string(tc.protocol), func(t *testing.T) {
			srv := startSocksServer(t, tc.version, false)
			p := newProber(t, target.URL, 2*time.Second, agents)

			err := p.Probe(context.Background(), model.Candidate{Protocol: tc.protocol, Address: srv.Addr()})
			if err != nil {
				t.Fatalf("Expected a good probe, got %v", err)
			}
			if got := ua(); got != "harvester-test-agent" {
				t.Errorf("Expected User-Agent from the pool, got %q", got)
			}
		})
	}
}

func TestSocksProber_BadOutcomes(t *testing.T) {
	okTarget, _ := newTarget(t, http.StatusOK)
	failTarget, _ := newTarget(t, http.StatusServiceUnavailable)

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadAddr := closed.Addr().String()
	closed.Close()

	tests := []struct {
		name      string
		target    string
		candidate func(t *testing.T) model.Candidate
	}{
		{"non-200 via socks5", failTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: model.Socks5, Address: startSocksServer(t, 5, false).Addr()}
		}},
		{"non-200 via socks4", failTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: model.Socks4, Address: startSocksServer(t, 4, false).Addr()}
		}},
		{"socks5 rejects connect", okTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: model.Socks5, Address: startSocksServer(t, 5, true).Addr()}
		}},
		{"socks4 rejects connect", okTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: model.Socks4, Address: startSocksServer(t, 4, true).Addr()}
		}},
		{"socks4 speaking socks5", okTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: model.Socks4, Address: startSocksServer(t, 5, false).Addr()}
		}},
		{"connection refused", okTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: model.Socks5, Address: deadAddr}
		}},
		{"unknown protocol", okTarget.URL, func(t *testing.T) model.Candidate {
			return model.Candidate{Protocol: "http", Address: deadAddr}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProber(t, tt.target, time.Second, nil)
			if err := p.Probe(context.Background(), tt.candidate(t)); err == nil {
				t.Error("Expected the probe to fail, got nil")
			}
		})
	}
}

func TestSocksProber_SilentProxyTimesOut(t *testing.T) {
	target, _ := newTarget(t, http.StatusOK)

	// Accepts connections but never answers the handshake.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
	})

	for _, protocol := range model.Protocols {
		t.Run(string(protocol), func(t *testing.T) {
			p := newProber(t, target.URL, 5*time.Second, nil)
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := p.Probe(ctx, model.Candidate{Protocol: protocol, Address: ln.Addr().String()})
			if err == nil {
				t.Fatal("Expected a timeout error, got nil")
			}
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Errorf("Expected the probe to stop at the context deadline, took %v", elapsed)
			}
		})
	}
}

func TestSocksProber_HTTPSTarget(t *testing.T) {
	target := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"origin": "127.0.0.1"}`))
	}))
	t.Cleanup(target.Close)

	roots := x509.NewCertPool()
	roots.AddCert(target.Certificate())

	for _, fingerprint := range []string{FingerprintRandomized, FingerprintGo} {
		for _, tc := range []struct {
			protocol model.Protocol
			version  byte
		}{
			{model.Socks4, 4},
			{model.Socks5, 5},
		} {
			t.Run(fingerprint+"/"+string(tc.protocol), func(t *testing.T) {
				srv := startSocksServer(t, tc.version, false)
				c := model.Candidate{Protocol: tc.protocol, Address: srv.Addr()}

				p, err := NewSocksProber(target.URL, 3*time.Second, nil, fingerprint)
				if err != nil {
					t.Fatalf("NewSocksProber() returned an error: %v", err)
				}

				// Without the test CA the certificate must be rejected.
				if err := p.Probe(context.Background(), c); err == nil {
					t.Fatal("Expected an untrusted certificate to fail the check, got nil")
				}

				p.rootCAs = roots
				if err := p.Probe(context.Background(), c); err != nil {
					t.Fatalf("Expected a good check over TLS, got %v", err)
				}
			})
		}
	}
}

func TestNewSocksProber_RejectsBadURL(t *testing.T) {
	if _, err := NewSocksProber("ftp://example.com", time.Second, nil, ""); err == nil {
		t.Error("Expected an error for a non-http probe URL")
	}
	if _, err := NewSocksProber("://bad", time.Second, nil, ""); err == nil {
		t.Error("Expected an error for an unparsable probe URL")
	}
}

func TestSocksProber_FallbackUserAgent(t *testing.T) {
	p := newProber(t, "http://example.com", time.Second, nil)
	if ua := p.userAgent(); ua == "" {
		t.Error("Expected a generated User-Agent when the pool is empty")
	}
}
