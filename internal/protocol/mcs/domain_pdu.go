package mcs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/encoding"
)

// DomainPDUApplication is the DomainMCSPDU CHOICE index (ITU-T T.125 section 7).
type DomainPDUApplication uint8

const (
	plumbDomainIndication DomainPDUApplication = iota
	erectDomainRequest
	mergeChannelsRequest
	mergeChannelsConfirm
	purgeChannelsIndication
	mergeTokensRequest
	mergeTokensConfirm
	purgeTokensIndication
	disconnectProviderUltimatum
	rejectMCSPDUUltimatum
	attachUserRequest
	attachUserConfirm
	detachUserRequest
	detachUserIndication
	channelJoinRequest
	channelJoinConfirm
	channelLeaveRequest
	channelConveneRequest
	channelConveneConfirm
	channelDisbandRequest
	channelDisbandIndication
	channelAdmitRequest
	channelAdmitIndication
	channelExpelRequest
	channelExpelIndication
	SendDataRequest
	SendDataIndication
	uniformSendDataRequest
	uniformSendDataIndication
)

// DomainPDU wraps the subset of DomainMCSPDU alternatives this implementation
// speaks on the wire. Deserialize reads the CHOICE tag byte and dispatches
// into whichever member field applies; the rest are left nil.
type DomainPDU struct {
	Application DomainPDUApplication

	ClientErectDomainRequest *ClientErectDomainRequest
	ClientAttachUserRequest  *ClientAttachUserRequest
	ServerAttachUserConfirm  *ServerAttachUserConfirm
	ClientChannelJoinRequest *ClientChannelJoinRequest
	ServerChannelJoinConfirm *ServerChannelJoinConfirm
	ClientSendDataRequest    *ClientSendDataRequest
	ServerSendDataIndication *ServerSendDataIndication
}

// Serialize encodes the CHOICE tag byte (application number in the top six
// bits) followed by the active member's own encoding.
func (pdu *DomainPDU) Serialize() []byte {
	buf := new(bytes.Buffer)

	switch pdu.Application {
	case erectDomainRequest:
		encoding.PerWriteChoice(uint8(erectDomainRequest)<<2, buf)
		buf.Write(pdu.ClientErectDomainRequest.Serialize())
	case attachUserRequest:
		encoding.PerWriteChoice(uint8(attachUserRequest)<<2, buf)
		buf.Write(pdu.ClientAttachUserRequest.Serialize())
	case channelJoinRequest:
		encoding.PerWriteChoice(uint8(channelJoinRequest)<<2, buf)
		buf.Write(pdu.ClientChannelJoinRequest.Serialize())
	case SendDataRequest:
		encoding.PerWriteChoice(uint8(SendDataRequest)<<2, buf)
		buf.Write(pdu.ClientSendDataRequest.Serialize())
	case attachUserConfirm:
		encoding.PerWriteChoice(uint8(attachUserConfirm)<<2, buf)
		buf.Write(pdu.ServerAttachUserConfirm.Serialize())
	case channelJoinConfirm:
		encoding.PerWriteChoice(uint8(channelJoinConfirm)<<2, buf)
		buf.Write(pdu.ServerChannelJoinConfirm.Serialize())
	}

	return buf.Bytes()
}

// Deserialize reads the CHOICE tag and decodes the PDU types either leg of
// the proxy receives: the client's erect domain, attach user, channel join
// and send data requests, and the server's attach user confirm, channel
// join confirm and send data indication. Anything else yields
// ErrUnknownDomainApplication, and the disconnect ultimatum gets its own
// sentinel since callers treat it as a normal teardown, not a protocol error.
func (pdu *DomainPDU) Deserialize(wire io.Reader) error {
	tag, err := encoding.PerReadChoice(wire)
	if err != nil {
		return err
	}
	pdu.Application = DomainPDUApplication(tag >> 2)

	switch pdu.Application {
	case erectDomainRequest:
		edr := &ClientErectDomainRequest{}
		if err := edr.Deserialize(wire); err != nil {
			return err
		}
		pdu.ClientErectDomainRequest = edr
	case attachUserRequest:
		pdu.ClientAttachUserRequest = &ClientAttachUserRequest{}
	case channelJoinRequest:
		cjr := &ClientChannelJoinRequest{}
		if err := cjr.Deserialize(wire); err != nil {
			return err
		}
		pdu.ClientChannelJoinRequest = cjr
	case attachUserConfirm:
		auc := &ServerAttachUserConfirm{}
		if err := auc.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerAttachUserConfirm = auc
	case channelJoinConfirm:
		cjc := &ServerChannelJoinConfirm{}
		if err := cjc.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerChannelJoinConfirm = cjc
	case SendDataIndication:
		sdi := &ServerSendDataIndication{}
		if err := sdi.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerSendDataIndication = sdi
	case SendDataRequest:
		sdr := &ClientSendDataRequest{}
		if err := sdr.Deserialize(wire); err != nil {
			return err
		}
		pdu.ClientSendDataRequest = sdr
	case disconnectProviderUltimatum:
		return ErrDisconnectUltimatum
	default:
		return ErrUnknownDomainApplication
	}

	return nil
}

// ClientAttachUserRequest is the AttachUserRequest PDU body, which carries
// no fields of its own.
type ClientAttachUserRequest struct{}

func (r *ClientAttachUserRequest) Serialize() []byte { return nil }

// ServerAttachUserConfirm is the AttachUserConfirm PDU body. Initiator is
// OPTIONAL in T.125; a server that omits it (0 trailing bytes after Result)
// leaves it nil rather than failing the parse.
type ServerAttachUserConfirm struct {
	Result    uint8
	Initiator *uint16
}

func (d *ServerAttachUserConfirm) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.BigEndian, &d.Result); err != nil {
		return err
	}

	initiator, err := encoding.PerReadInteger16(userChannelBase, wire)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.Initiator = nil
			return nil
		}
		return err
	}
	d.Initiator = &initiator

	var trailing [1]byte
	if _, err := wire.Read(trailing[:]); err != io.EOF {
		return errors.New("mcs: attach user confirm carries unexpected trailing data")
	}

	return nil
}

// Serialize encodes the AttachUserConfirm PDU body, used when this side is
// acting as the MCS provider (the proxy's client-facing leg).
func (d *ServerAttachUserConfirm) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, d.Result)
	if d.Initiator != nil {
		encoding.PerWriteInteger16(*d.Initiator, userChannelBase, buf)
	}
	return buf.Bytes()
}

// ClientChannelJoinRequest is the ChannelJoinRequest PDU body.
type ClientChannelJoinRequest struct {
	Initiator uint16
	ChannelId uint16
}

func (r *ClientChannelJoinRequest) Serialize() []byte {
	buf := new(bytes.Buffer)
	encoding.PerWriteInteger16(r.Initiator, userChannelBase, buf)
	encoding.PerWriteInteger16(r.ChannelId, 0, buf)
	return buf.Bytes()
}

func (r *ClientChannelJoinRequest) Deserialize(wire io.Reader) error {
	var err error
	r.Initiator, err = encoding.PerReadInteger16(userChannelBase, wire)
	if err != nil {
		return err
	}

	r.ChannelId, err = encoding.PerReadInteger16(0, wire)
	return err
}

// ServerChannelJoinConfirm is the ChannelJoinConfirm PDU body. ChannelId is
// OPTIONAL in T.125; a short read that runs out exactly after Requested is
// treated as "absent", not an error.
type ServerChannelJoinConfirm struct {
	Result    uint8
	Initiator uint16
	Requested uint16
	ChannelId uint16
}

func (d *ServerChannelJoinConfirm) Deserialize(wire io.Reader) error {
	if err := binary.Read(wire, binary.BigEndian, &d.Result); err != nil {
		return err
	}

	var err error
	d.Initiator, err = encoding.PerReadInteger16(userChannelBase, wire)
	if err != nil {
		return err
	}

	d.Requested, err = encoding.PerReadInteger16(0, wire)
	if err != nil {
		return err
	}

	d.ChannelId, err = encoding.PerReadInteger16(0, wire)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.ChannelId = 0
			return nil
		}
		return err
	}

	return nil
}

// Serialize encodes the ChannelJoinConfirm PDU body, used when this side is
// acting as the MCS provider (the proxy's client-facing leg).
func (d *ServerChannelJoinConfirm) Serialize() []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, d.Result)
	encoding.PerWriteInteger16(d.Initiator, userChannelBase, buf)
	encoding.PerWriteInteger16(d.Requested, 0, buf)
	encoding.PerWriteInteger16(d.ChannelId, 0, buf)
	return buf.Bytes()
}
