package validator

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/corpix/uarand"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
	"h12.io/socks"

	"proxy_harvester/proxypool/model"
)

const (
	// FingerprintRandomized sends a randomized ClientHello without ALPN, keeping HTTP/1.1.
	FingerprintRandomized = "randomized"
	// FingerprintGo leaves the handshake to crypto/tls.
	FingerprintGo = "go"
)

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SocksProber issues one GET of a fixed URL through a SOCKS4 or SOCKS5 candidate.
type SocksProber struct {
	target      *url.URL
	timeout     time.Duration
	userAgents  []string
	fingerprint string
	rootCAs     *x509.CertPool // nil means the system roots
}

func NewSocksProber(probeURL string, timeout time.Duration, userAgents []string, fingerprint string) (*SocksProber, error) {
	target, err := url.Parse(probeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid probe URL %q: %w", probeURL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("probe URL %q must be http or https", probeURL)
	}
	if fingerprint == "" {
		fingerprint = FingerprintRandomized
	}
	return &SocksProber{
		target:      target,
		timeout:     timeout,
		userAgents:  userAgents,
		fingerprint: fingerprint,
	}, nil
}

// Probe returns nil only when the target answered 200 through the candidate.
func (p *SocksProber) Probe(ctx context.Context, c model.Candidate) error {
	dial, err := p.dialerFor(c)
	if err != nil {
		return err
	}

	transport := &http.Transport{
		DialContext:           dial,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   p.timeout,
		ResponseHeaderTimeout: p.timeout,
	}
	if p.target.Scheme == "https" {
		if p.fingerprint == FingerprintRandomized {
			transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialUTLS(ctx, dial, network, addr, p.rootCAs)
			}
		} else {
			transport.TLSClientConfig = &tls.Config{RootCAs: p.rootCAs}
		}
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}
	return nil
}

func (p *SocksProber) dialerFor(c model.Candidate) (dialFunc, error) {
	switch c.Protocol {
	case model.Socks5:
		dialer, err := proxy.SOCKS5("tcp", c.Address, nil, &net.Dialer{Timeout: p.timeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", c.Address)
		}
		return cd.DialContext, nil
	case model.Socks4:
		return withContext(socks.Dial(fmt.Sprintf("socks4://%s?timeout=%s", c.Address, p.timeout))), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", c.Protocol)
	}
}

func (p *SocksProber) userAgent() string {
	if len(p.userAgents) == 0 {
		return uarand.GetRandom()
	}
	return p.userAgents[rand.IntN(len(p.userAgents))]
}

// withContext adapts a blocking dial so that ctx can abandon it; a connection that
// arrives after the abandon is closed.
func withContext(dial func(network, addr string) (net.Conn, error)) dialFunc {
	type result struct {
		conn net.Conn
		err  error
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		ch := make(chan result, 1)
		go func() {
			conn, err := dial(network, addr)
			ch <- result{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			go func() {
				if r := <-ch; r.conn != nil {
					r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

func dialUTLS(ctx context.Context, dial dialFunc, network, addr string, roots *x509.CertPool) (net.Conn, error) {
	conn, err := dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		conn.Close()
		return nil, err
	}
	uconn := utls.UClient(conn, &utls.Config{ServerName: host, RootCAs: roots}, utls.HelloRandomizedNoALPN)
	if err := uconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake with %s failed: %w", host, err)
	}
	return uconn, nil
}
