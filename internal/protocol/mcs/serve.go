package mcs

import "fmt"

// The methods in this file implement the MCS provider (server) role the
// proxy plays towards the real client: the mirror image of connect.go's
// client-role methods, which the proxy plays towards the real server.

// ReceiveConnectInitial reads the real client's ConnectInitial PDU.
func (p *Protocol) ReceiveConnectInitial() (*ClientMCSConnectInitial, error) {
	wire, err := p.x224Conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("receive MCS connect initial: %w", err)
	}

	var req ConnectPDU
	if err := req.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("client MCS connect initial: %w", err)
	}
	if req.Application != connectInitial {
		return nil, ErrUnknownConnectApplication
	}

	return req.ClientConnectInitial, nil
}

// SendConnectResponse answers a ConnectInitial with resp.
func (p *Protocol) SendConnectResponse(resp *ServerConnectResponse) error {
	reply := ConnectPDU{
		Application:           connectResponse,
		ServerConnectResponse: resp,
	}

	if err := p.x224Conn.Send(reply.Serialize()); err != nil {
		return fmt.Errorf("server MCS connect response: %w", err)
	}
	return nil
}

// ReceiveErectDomainRequest reads the real client's ErectDomainRequest. It
// has no reply: T.125 does not define a confirm for it.
func (p *Protocol) ReceiveErectDomainRequest() (*ClientErectDomainRequest, error) {
	wire, err := p.x224Conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("receive MCS erect domain request: %w", err)
	}

	var req DomainPDU
	if err := req.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("client MCS erect domain request: %w", err)
	}
	if req.Application != erectDomainRequest {
		return nil, ErrUnknownDomainApplication
	}

	return req.ClientErectDomainRequest, nil
}

// ReceiveAttachUserRequest reads the real client's AttachUserRequest.
func (p *Protocol) ReceiveAttachUserRequest() error {
	wire, err := p.x224Conn.Receive()
	if err != nil {
		return fmt.Errorf("receive MCS attach user request: %w", err)
	}

	var req DomainPDU
	if err := req.Deserialize(wire); err != nil {
		return fmt.Errorf("client MCS attach user request: %w", err)
	}
	if req.Application != attachUserRequest {
		return ErrUnknownDomainApplication
	}

	return nil
}

// SendAttachUserConfirm answers an AttachUserRequest, assigning initiator as
// the client's user id within this domain.
func (p *Protocol) SendAttachUserConfirm(initiator uint16) error {
	reply := DomainPDU{
		Application: attachUserConfirm,
		ServerAttachUserConfirm: &ServerAttachUserConfirm{
			Result:    RTSuccessful,
			Initiator: &initiator,
		},
	}

	if err := p.x224Conn.Send(reply.Serialize()); err != nil {
		return fmt.Errorf("server MCS attach user confirm: %w", err)
	}
	return nil
}

// SendChannelJoinConfirm answers a ChannelJoinRequest, admitting the client
// to channelID.
func (p *Protocol) SendChannelJoinConfirm(initiator, channelID uint16) error {
	reply := DomainPDU{
		Application: channelJoinConfirm,
		ServerChannelJoinConfirm: &ServerChannelJoinConfirm{
			Result:    RTSuccessful,
			Initiator: initiator,
			Requested: channelID,
			ChannelId: channelID,
		},
	}

	if err := p.x224Conn.Send(reply.Serialize()); err != nil {
		return fmt.Errorf("server MCS channel join confirm (%d): %w", channelID, err)
	}
	return nil
}
