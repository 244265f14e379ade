package proxy

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rcarmo/rdp-mitm/internal/mitm"
	"github.com/rcarmo/rdp-mitm/internal/protocol/mcs"
	"github.com/rcarmo/rdp-mitm/internal/protocol/pdu"
	"github.com/rcarmo/rdp-mitm/internal/protocol/tpkt"
	"github.com/rcarmo/rdp-mitm/internal/protocol/x224"
	"github.com/rcarmo/rdp-mitm/internal/security"
)

// sessionKeyLabel names the keying material this proxy exports from each
// leg's TLS connection (RFC 5705), used only to give the recorded session a
// per-leg key distinct from the TLS record encryption keys themselves.
const sessionKeyLabel = "rdp-mitm-proxy-session-tap"

// securitySettingsFor captures what one leg of the proxied connection
// negotiated, for mitm.State's security bookkeeping (spec requirement: both
// sides' security settings and per-side session keys).
func securitySettingsFor(protocol pdu.NegotiationProtocol, conn *tls.Conn) mitm.SecuritySettings {
	cs := conn.ConnectionState()

	settings := mitm.SecuritySettings{
		Protocol:    protocol,
		TLSVersion:  cs.Version,
		CipherSuite: cs.CipherSuite,
	}

	if key, err := cs.ExportKeyingMaterial(sessionKeyLabel, nil, 32); err == nil {
		settings.SessionKey = key
	}

	return settings
}

// ErrClientDeclinesTLS is returned when the real client's Connection
// Request never offers PROTOCOL_SSL. This proxy only terminates TLS-secured
// connections: a legacy client restricted to Standard RDP Security's own
// proprietary certificate exchange, or to NLA/CredSSP, has nothing for it to
// sit in the middle of.
var ErrClientDeclinesTLS = errors.New("proxy: client does not offer PROTOCOL_SSL")

// legs is the pair of connections left behind once the handshake has
// terminated both sides' security layer and bridged their MCS domains onto
// the same set of channel ids. From here on, the existing frame-tapping
// pump can keep relaying byte-for-byte: TPKT/fast-path framing on a
// terminated TLS connection is identical to framing on a cleartext one.
// clientReader carries the one frame the channel-join bridging had to read
// off the client connection before it could tell it wasn't another join
// request (the Client Info PDU, sent the moment the client considers the
// domain ready): pump must start from it instead of the raw connection, or
// that frame is lost.
type legs struct {
	client       net.Conn
	server       net.Conn
	clientReader *bufio.Reader
}

// performHandshake terminates the real client's own X.224/MCS connection
// sequence and drives an independent one against the real server, so the
// proxy actually sits inside the cryptographic handshake instead of
// forwarding an opaque byte stream. It declines NLA/CredSSP and legacy
// Standard RDP Security on both legs (the corresponding Hybrid*, RDSTLS and
// plain-RDP bits are stripped from what this proxy offers the server, and
// any client that cannot fall back to PROTOCOL_SSL is rejected outright),
// forcing both legs onto plain TLS, which this proxy can actually terminate
// with a real certificate.
func (s *Session) performHandshake(cert tls.Certificate) (*legs, error) {
	tpktClient := tpkt.New(s.ClientConn)

	clientUserData, err := readConnectionRequest(tpktClient)
	if err != nil {
		return nil, fmt.Errorf("proxy: read client connection request: %w", err)
	}

	prefix, negReq, _, hasNegReq := pdu.ParseConnectionRequestUserData(clientUserData)
	if !hasNegReq || negReq.RequestedProtocols&pdu.NegotiationProtocolSSL == 0 {
		return nil, ErrClientDeclinesTLS
	}

	tpktServer := tpkt.New(s.ServerConn)
	selected, err := negotiateServerLeg(tpktServer, prefix)
	if err != nil {
		return nil, fmt.Errorf("proxy: negotiate server leg: %w", err)
	}
	if !selected.IsSSL() {
		return nil, fmt.Errorf("proxy: target server selected protocol %d, not PROTOCOL_SSL", selected)
	}

	if err := confirmClientLeg(tpktClient); err != nil {
		return nil, fmt.Errorf("proxy: confirm client leg: %w", err)
	}

	tlsClient := tls.Server(s.ClientConn, security.ServerTLSConfig(cert))
	if err := tlsClient.Handshake(); err != nil {
		return nil, fmt.Errorf("proxy: client-facing TLS handshake: %w", err)
	}
	s.State.ClientSecurity = securitySettingsFor(pdu.NegotiationProtocolSSL, tlsClient)

	tlsServer := tls.Client(s.ServerConn, &tls.Config{
		InsecureSkipVerify: true, // nolint:gosec // the proxy terminates the real server's own cert, not the client's
		MinVersion:         tls.VersionTLS10,
	})
	if err := tlsServer.Handshake(); err != nil {
		_ = tlsClient.Close()
		return nil, fmt.Errorf("proxy: server-facing TLS handshake: %w", err)
	}
	s.State.ServerSecurity = securitySettingsFor(selected, tlsServer)

	clientReader, err := bridgeMCS(tlsClient, tlsServer)
	if err != nil {
		_ = tlsClient.Close()
		_ = tlsServer.Close()
		return nil, fmt.Errorf("proxy: bridge MCS domain: %w", err)
	}

	return &legs{client: tlsClient, server: tlsServer, clientReader: clientReader}, nil
}

// readConnectionRequest reads the client's X.224 Connection Request and
// returns its UserData (the optional cookie/routing token followed by the
// RDP Negotiation Request).
func readConnectionRequest(t *tpkt.Protocol) ([]byte, error) {
	wire, err := t.Receive()
	if err != nil {
		return nil, err
	}

	var req x224.ConnectionRequest
	if err := req.Deserialize(wire); err != nil {
		return nil, err
	}

	return req.UserData, nil
}

// negotiateServerLeg sends a Connection Request to the real server asking
// only for PROTOCOL_SSL, preserving prefix (the cookie/routing token the
// real client supplied, so load-balanced server farms still route to the
// right host) and returns the protocol the server selected.
func negotiateServerLeg(t *tpkt.Protocol, prefix string) (pdu.NegotiationProtocol, error) {
	userData := append([]byte(prefix), pdu.NegotiationRequest{
		RequestedProtocols: pdu.NegotiationProtocolSSL,
	}.Serialize()...)

	req := x224.ConnectionRequest{
		CRCDT:    0xE0,
		UserData: userData,
	}
	if err := t.Send(req.Serialize()); err != nil {
		return 0, fmt.Errorf("send connection request: %w", err)
	}

	wire, err := t.Receive()
	if err != nil {
		return 0, fmt.Errorf("receive connection confirm: %w", err)
	}

	var cc x224.ConnectionConfirm
	if err := cc.Deserialize(wire); err != nil {
		return 0, fmt.Errorf("decode connection confirm: %w", err)
	}

	var resp pdu.ServerConnectionConfirm
	if err := resp.Deserialize(wire); err != nil {
		return 0, fmt.Errorf("decode negotiation response: %w", err)
	}
	if resp.Type.IsFailure() {
		return 0, fmt.Errorf("target server rejected negotiation: %s", resp.FailureCode())
	}

	return resp.SelectedProtocol(), nil
}

// confirmClientLeg answers the real client's Connection Request with a
// Connection Confirm selecting PROTOCOL_SSL, the only protocol this proxy
// ever terminates.
func confirmClientLeg(t *tpkt.Protocol) error {
	cc := x224.ConnectionConfirm{ClassOption: 0}
	resp := pdu.NewServerConnectionConfirm(pdu.NegotiationProtocolSSL)

	body := append(cc.Serialize(), resp.Serialize()...)
	return t.Send(body)
}

// bridgeMCS drives the MCS Connect/Erect Domain/Attach User/Channel Join
// sequence on both legs independently, downgrading the domain parameters
// the real client proposes to the most permissive consistent set before
// forwarding them to the real server, and mirroring every channel the real
// client joins onto an identical join against the real server. The proxy
// holds both legs' keys and settings throughout: nothing here is a blind
// copy. It returns a reader positioned at the first byte pump should read
// from clientConn, since the channel-join loop may have to read one frame
// past the last join request to discover it is not one.
func bridgeMCS(clientConn, serverConn net.Conn) (*bufio.Reader, error) {
	mcsClient := mcs.New(x224.New(tpkt.New(clientConn)))
	mcsServer := mcs.New(x224.New(tpkt.New(serverConn)))

	initial, err := mcsClient.ReceiveConnectInitial()
	if err != nil {
		return nil, fmt.Errorf("receive client connect initial: %w", err)
	}
	initial.Downgrade()

	serverResp, err := mcsServer.ConnectFullWithInitial(initial)
	if err != nil {
		return nil, fmt.Errorf("connect to target MCS domain: %w", err)
	}

	clientResp := mcs.NewServerConnectResponse(serverResp.CalledConnectId, initial.Parameters(), serverResp.UserData)
	if err := mcsClient.SendConnectResponse(clientResp); err != nil {
		return nil, fmt.Errorf("send client connect response: %w", err)
	}

	if _, err := mcsClient.ReceiveErectDomainRequest(); err != nil {
		return nil, fmt.Errorf("receive client erect domain request: %w", err)
	}
	if err := mcsServer.ErectDomain(); err != nil {
		return nil, fmt.Errorf("erect target domain: %w", err)
	}

	if err := mcsClient.ReceiveAttachUserRequest(); err != nil {
		return nil, fmt.Errorf("receive client attach user request: %w", err)
	}
	serverUserID, err := mcsServer.AttachUser()
	if err != nil {
		return nil, fmt.Errorf("attach user to target domain: %w", err)
	}
	if err := mcsClient.SendAttachUserConfirm(serverUserID); err != nil {
		return nil, fmt.Errorf("send client attach user confirm: %w", err)
	}

	return bridgeChannelJoins(clientConn, mcsClient, mcsServer, serverUserID)
}

// bridgeChannelJoins mirrors every channel join the real client requests
// onto an identical join against the real server, reusing the client's own
// channel ids rather than renumbering them: since both legs end up with the
// same channel id for the same logical channel, the existing frame relay
// can keep routing data-plane traffic without rewriting channel ids itself.
//
// A real client performs this request/confirm round trip once per channel
// it was told about during GCC negotiation and then moves straight on to
// data-plane traffic (the Client Info PDU, carried as an ordinary MCS
// SendDataRequest) without any further control PDU marking the end of the
// sequence: with PROTOCOL_SSL negotiated, Security Exchange never happens.
// So the only way to notice the join sequence is over is to read the next
// frame and find it isn't a join request, and that frame must not be
// thrown away. It is parsed straight off frame.Raw without disturbing r,
// then stitched back in front of r for the caller.
func bridgeChannelJoins(clientConn net.Conn, mcsClient, mcsServer *mcs.Protocol, serverUserID uint16) (*bufio.Reader, error) {
	r := bufio.NewReader(clientConn)

	for {
		frame, err := readFrame(r)
		if err != nil {
			return nil, fmt.Errorf("read client frame: %w", err)
		}

		join, ok := parseChannelJoinRequest(frame.Raw)
		if !ok {
			return bufio.NewReader(io.MultiReader(bytes.NewReader(frame.Raw), r)), nil
		}

		if err := mcsServer.JoinChannel(serverUserID, join.ChannelId); err != nil {
			return nil, fmt.Errorf("join target channel %d: %w", join.ChannelId, err)
		}
		if err := mcsClient.SendChannelJoinConfirm(join.Initiator, join.ChannelId); err != nil {
			return nil, fmt.Errorf("send client channel join confirm %d: %w", join.ChannelId, err)
		}
	}
}

// parseChannelJoinRequest decodes raw (a slow-path frame already read off
// the wire) as an MCS ChannelJoinRequest, reporting ok == false for any
// other PDU shape rather than erroring: the caller uses this to peek at a
// frame without committing to having consumed a join request.
func parseChannelJoinRequest(raw []byte) (*mcs.ClientChannelJoinRequest, bool) {
	if len(raw) < 4 {
		return nil, false
	}
	body := bytes.NewReader(raw[4:])

	var xd x224.Data
	if err := xd.Deserialize(body); err != nil {
		return nil, false
	}

	var dom mcs.DomainPDU
	if err := dom.Deserialize(body); err != nil {
		return nil, false
	}

	if dom.ClientChannelJoinRequest == nil {
		return nil, false
	}
	return dom.ClientChannelJoinRequest, true
}
