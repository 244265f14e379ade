package mcs

import (
	"bytes"
	"fmt"
	"io"
)

// Connect sends a ConnectInitial carrying userData (the GCC Conference
// Create Request) and returns a reader over the server's ConnectResponse
// user data (the GCC Conference Create Response) once the domain parameters
// negotiate successfully.
func (p *Protocol) Connect(userData []byte) (io.Reader, error) {
	return p.ConnectWithInitial(NewClientMCSConnectInitial(userData))
}

// ConnectWithInitial is Connect for a caller that needs to control the
// ConnectInitial's domain parameters directly, such as the proxy relaying a
// (downgraded) copy of the real client's own ConnectInitial.
func (p *Protocol) ConnectWithInitial(initial *ClientMCSConnectInitial) (io.Reader, error) {
	resp, err := p.ConnectFullWithInitial(initial)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(resp.UserData), nil
}

// ConnectFullWithInitial is ConnectWithInitial for a caller that needs the
// whole ConnectResponse, such as the proxy bridging the real server's
// negotiated domain parameters back to the real client.
func (p *Protocol) ConnectFullWithInitial(initial *ClientMCSConnectInitial) (*ServerConnectResponse, error) {
	req := ConnectPDU{
		Application:          connectInitial,
		ClientConnectInitial: initial,
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return nil, fmt.Errorf("client MCS connect initial: %w", err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("receive MCS connect response: %w", err)
	}

	var resp ConnectPDU
	if err := resp.Deserialize(wire); err != nil {
		return nil, fmt.Errorf("server MCS connect response: %w", err)
	}

	if resp.ServerConnectResponse.Result != RTSuccessful {
		return nil, fmt.Errorf("mcs: connect rejected: result=%d", resp.ServerConnectResponse.Result)
	}

	return resp.ServerConnectResponse, nil
}

// AttachUser requests a new MCS user attachment and returns the assigned
// user (initiator) ID.
func (p *Protocol) AttachUser() (uint16, error) {
	req := DomainPDU{
		Application:             attachUserRequest,
		ClientAttachUserRequest: &ClientAttachUserRequest{},
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return 0, fmt.Errorf("client MCS attach user request: %w", err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return 0, fmt.Errorf("receive MCS attach user confirm: %w", err)
	}

	var resp DomainPDU
	if err := resp.Deserialize(wire); err != nil {
		return 0, fmt.Errorf("server MCS attach user confirm: %w", err)
	}
	if resp.Application != attachUserConfirm {
		return 0, ErrUnknownDomainApplication
	}
	if resp.ServerAttachUserConfirm.Result != RTSuccessful {
		return 0, fmt.Errorf("mcs: attach user rejected: result=%d", resp.ServerAttachUserConfirm.Result)
	}
	if resp.ServerAttachUserConfirm.Initiator == nil {
		return 0, fmt.Errorf("mcs: attach user confirm omitted initiator")
	}

	return *resp.ServerAttachUserConfirm.Initiator, nil
}

// JoinChannel requests that userID join a single channel id, returning an
// error if the server rejects the join. Used by the proxy to mirror
// channel joins the real client performs against it, channel by channel,
// without needing to know the channel's name.
func (p *Protocol) JoinChannel(userID, channelID uint16) error {
	req := DomainPDU{
		Application: channelJoinRequest,
		ClientChannelJoinRequest: &ClientChannelJoinRequest{
			Initiator: userID,
			ChannelId: channelID,
		},
	}

	if err := p.x224Conn.Send(req.Serialize()); err != nil {
		return fmt.Errorf("client MCS channel join request (%d): %w", channelID, err)
	}

	wire, err := p.x224Conn.Receive()
	if err != nil {
		return fmt.Errorf("receive MCS channel join confirm (%d): %w", channelID, err)
	}

	var resp DomainPDU
	if err := resp.Deserialize(wire); err != nil {
		return fmt.Errorf("server MCS channel join confirm (%d): %w", channelID, err)
	}
	if resp.Application != channelJoinConfirm {
		return ErrUnknownDomainApplication
	}
	if resp.ServerChannelJoinConfirm.Result != RTSuccessful {
		return fmt.Errorf("mcs: channel join rejected (%d): result=%d", channelID, resp.ServerChannelJoinConfirm.Result)
	}

	return nil
}

// JoinChannels requests that userID join every channel in channelIDMap,
// keyed by the channel's logical name (for error messages only).
func (p *Protocol) JoinChannels(userID uint16, channelIDMap map[string]uint16) error {
	for name, channelID := range channelIDMap {
		req := DomainPDU{
			Application: channelJoinRequest,
			ClientChannelJoinRequest: &ClientChannelJoinRequest{
				Initiator: userID,
				ChannelId: channelID,
			},
		}

		if err := p.x224Conn.Send(req.Serialize()); err != nil {
			return fmt.Errorf("client MCS channel join request (%s): %w", name, err)
		}

		wire, err := p.x224Conn.Receive()
		if err != nil {
			return fmt.Errorf("receive MCS channel join confirm (%s): %w", name, err)
		}

		var resp DomainPDU
		if err := resp.Deserialize(wire); err != nil {
			return fmt.Errorf("server MCS channel join confirm (%s): %w", name, err)
		}
		if resp.Application != channelJoinConfirm {
			return ErrUnknownDomainApplication
		}
		if resp.ServerChannelJoinConfirm.Result != RTSuccessful {
			return fmt.Errorf("mcs: channel join rejected (%s): result=%d", name, resp.ServerChannelJoinConfirm.Result)
		}
	}

	return nil
}

// Disconnect sends a DisconnectProviderUltimatum with reason
// rn-user-requested, the fixed encoding RDP clients use to tear down the
// MCS domain at session end.
func (p *Protocol) Disconnect() error {
	return p.x224Conn.Send([]byte{0x21, 0x80})
}
