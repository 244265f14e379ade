package mcs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/rcarmo/rdp-mitm/internal/protocol/encoding"
)

// ConnectPDUApplication is the ConnectMCSPDU CHOICE index (T.125 section 7),
// BER-application-tagged rather than PER-choice-tagged like DomainMCSPDU.
type ConnectPDUApplication uint8

const (
	connectInitial    ConnectPDUApplication = 101
	connectResponse   ConnectPDUApplication = 102
	connectAdditional ConnectPDUApplication = 103
	connectResult     ConnectPDUApplication = 104
)

// ConnectPDU wraps the ConnectMCSPDU alternatives this implementation speaks:
// the client's ConnectInitial and the server's ConnectResponse.
type ConnectPDU struct {
	Application ConnectPDUApplication

	ClientConnectInitial  *ClientMCSConnectInitial
	ServerConnectResponse *ServerConnectResponse
}

func (pdu *ConnectPDU) Serialize() []byte {
	var body []byte

	switch pdu.Application {
	case connectInitial:
		body = pdu.ClientConnectInitial.Serialize()
	case connectResponse:
		body = pdu.ServerConnectResponse.Serialize()
	}

	buf := new(bytes.Buffer)
	encoding.BerWriteApplicationTag(uint8(pdu.Application), len(body), buf)
	buf.Write(body)

	return buf.Bytes()
}

func (pdu *ConnectPDU) Deserialize(wire io.Reader) error {
	tag, err := encoding.BerReadApplicationTag(wire)
	if err != nil {
		return err
	}
	pdu.Application = ConnectPDUApplication(tag)

	switch pdu.Application {
	case connectResponse:
		resp := &ServerConnectResponse{}
		if err := resp.Deserialize(wire); err != nil {
			return err
		}
		pdu.ServerConnectResponse = resp
	case connectInitial:
		initial := &ClientMCSConnectInitial{}
		if err := initial.Deserialize(wire); err != nil {
			return err
		}
		pdu.ClientConnectInitial = initial
	default:
		return ErrUnknownConnectApplication
	}

	return nil
}

// ClientMCSConnectInitial is the ConnectInitial PDU body (T.125 section 7).
type ClientMCSConnectInitial struct {
	calledDomainSelector  []byte
	callingDomainSelector []byte
	upwardFlag            bool
	targetParameters      domainParameters
	minimumParameters     domainParameters
	maximumParameters     domainParameters
	userData              []byte
}

// NewClientMCSConnectInitial builds a ConnectInitial carrying userData (the
// GCC Conference Create Request) with the fixed domain parameter triplet
// every RDP client negotiates.
func NewClientMCSConnectInitial(userData []byte) *ClientMCSConnectInitial {
	return &ClientMCSConnectInitial{
		calledDomainSelector:  []byte{0x01},
		callingDomainSelector: []byte{0x01},
		upwardFlag:            true,
		targetParameters: domainParameters{
			maxChannelIds:   34,
			maxUserIds:      2,
			maxTokenIds:     0,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   65535,
			protocolVersion: 2,
		},
		minimumParameters: domainParameters{
			maxChannelIds:   1,
			maxUserIds:      1,
			maxTokenIds:     1,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   1056,
			protocolVersion: 2,
		},
		maximumParameters: domainParameters{
			maxChannelIds:   65535,
			maxUserIds:      65535,
			maxTokenIds:     65535,
			numPriorities:   1,
			minThroughput:   0,
			maxHeight:       1,
			maxMCSPDUsize:   65535,
			protocolVersion: 2,
		},
		userData: userData,
	}
}

func (pdu *ClientMCSConnectInitial) Serialize() []byte {
	buf := new(bytes.Buffer)

	encoding.BerWriteOctetString(pdu.calledDomainSelector, buf)
	encoding.BerWriteOctetString(pdu.callingDomainSelector, buf)
	encoding.BerWriteBoolean(pdu.upwardFlag, buf)
	encoding.BerWriteSequence(pdu.targetParameters.Serialize(), buf)
	encoding.BerWriteSequence(pdu.minimumParameters.Serialize(), buf)
	encoding.BerWriteSequence(pdu.maximumParameters.Serialize(), buf)
	encoding.BerWriteOctetString(pdu.userData, buf)

	return buf.Bytes()
}

// berDomainParametersSequence reads the BER sequence tag/length wrapper
// around one DomainParameters triplet member and decodes its contents.
func berDomainParametersSequence(wire io.Reader) (domainParameters, error) {
	var params domainParameters

	isSequence, err := encoding.BerReadUniversalTag(encoding.TagSequence, true, wire)
	if err != nil {
		return params, err
	}
	if !isSequence {
		return params, errors.New("mcs: bad ber tag for domain parameters sequence")
	}
	if _, err := encoding.BerReadLength(wire); err != nil {
		return params, err
	}

	err = params.Deserialize(wire)
	return params, err
}

// Deserialize decodes a ConnectInitial PDU body sent by a real RDP client,
// used by the proxy's client-facing leg to learn the domain parameters and
// GCC Conference Create Request it should relay onward (downgraded, in the
// case of the parameters).
func (pdu *ClientMCSConnectInitial) Deserialize(wire io.Reader) error {
	var err error

	pdu.calledDomainSelector, err = encoding.BerReadOctetString(wire)
	if err != nil {
		return err
	}

	pdu.callingDomainSelector, err = encoding.BerReadOctetString(wire)
	if err != nil {
		return err
	}

	pdu.upwardFlag, err = encoding.BerReadBoolean(wire)
	if err != nil {
		return err
	}

	pdu.targetParameters, err = berDomainParametersSequence(wire)
	if err != nil {
		return err
	}

	pdu.minimumParameters, err = berDomainParametersSequence(wire)
	if err != nil {
		return err
	}

	pdu.maximumParameters, err = berDomainParametersSequence(wire)
	if err != nil {
		return err
	}

	pdu.userData, err = encoding.BerReadOctetString(wire)
	return err
}

// UserData returns the opaque GCC Conference Create Request this PDU
// carries, so a caller relaying the connection onward does not need to
// re-encode it.
func (pdu *ClientMCSConnectInitial) UserData() []byte {
	return pdu.userData
}

// Parameters returns the (post-Downgrade, if called) target domain
// parameters, so a caller answering the real client's ConnectInitial can
// report back the same set it forwarded to the real server.
func (pdu *ClientMCSConnectInitial) Parameters() domainParameters {
	return pdu.targetParameters
}

// mostPermissive combines two DomainParameters members into the single
// loosest set consistent with both: larger resource ceilings, a lower
// minimum throughput requirement, and a smaller required PDU size (so
// neither side's buffer is exceeded).
func mostPermissive(a, b domainParameters) domainParameters {
	max := func(x, y int) int {
		if x > y {
			return x
		}
		return y
	}
	min := func(x, y int) int {
		if x < y {
			return x
		}
		return y
	}

	return domainParameters{
		maxChannelIds:   max(a.maxChannelIds, b.maxChannelIds),
		maxUserIds:      max(a.maxUserIds, b.maxUserIds),
		maxTokenIds:     max(a.maxTokenIds, b.maxTokenIds),
		numPriorities:   min(a.numPriorities, b.numPriorities),
		minThroughput:   min(a.minThroughput, b.minThroughput),
		maxHeight:       max(a.maxHeight, b.maxHeight),
		maxMCSPDUsize:   min(a.maxMCSPDUsize, b.maxMCSPDUsize),
		protocolVersion: min(a.protocolVersion, b.protocolVersion),
	}
}

// Downgrade collapses the target/minimum/maximum DomainParameters triplet
// this PDU carries to the most permissive consistent set (T.125 section
// 7's "determined by the top provider" allows this), applying it to all
// three members before the PDU is relayed to the real server. This is more
// tolerant of quirky server implementations than forwarding three
// independently client-chosen values unmodified.
func (pdu *ClientMCSConnectInitial) Downgrade() {
	permissive := mostPermissive(mostPermissive(pdu.targetParameters, pdu.minimumParameters), pdu.maximumParameters)
	pdu.targetParameters = permissive
	pdu.minimumParameters = permissive
	pdu.maximumParameters = permissive
}

// ServerConnectResponse is the ConnectResponse PDU body.
type ServerConnectResponse struct {
	Result          uint8
	CalledConnectId int
	ServerSettings  domainParameters
	UserData        []byte
}

// NewServerConnectResponse builds a successful ConnectResponse carrying
// params and userData, used by the proxy's client-facing leg to answer the
// real client with the domain parameters and GCC response it actually
// negotiated with the real server.
func NewServerConnectResponse(calledConnectId int, params domainParameters, userData []byte) *ServerConnectResponse {
	return &ServerConnectResponse{
		Result:          RTSuccessful,
		CalledConnectId: calledConnectId,
		ServerSettings:  params,
		UserData:        userData,
	}
}

func (pdu *ServerConnectResponse) Deserialize(wire io.Reader) error {
	result, err := encoding.BerReadEnumerated(wire)
	if err != nil {
		return err
	}
	pdu.Result = result

	calledConnectId, err := encoding.BerReadInteger(wire)
	if err != nil {
		return err
	}
	pdu.CalledConnectId = calledConnectId

	isSequence, err := encoding.BerReadUniversalTag(encoding.TagSequence, true, wire)
	if err != nil {
		return err
	}
	if !isSequence {
		return errors.New("mcs: bad ber tag for domain parameters sequence")
	}
	if _, err := encoding.BerReadLength(wire); err != nil {
		return err
	}
	if err := pdu.ServerSettings.Deserialize(wire); err != nil {
		return err
	}

	var octetTag uint8
	if err := binary.Read(wire, binary.BigEndian, &octetTag); err != nil {
		return err
	}
	if octetTag != 0x04 {
		return errors.New("mcs: bad ber tag for user data octet string")
	}
	length, err := encoding.BerReadLength(wire)
	if err != nil {
		return err
	}
	pdu.UserData = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(wire, pdu.UserData); err != nil {
			return err
		}
	}

	return nil
}

// Serialize encodes a ConnectResponse PDU body, used when the proxy's
// client-facing leg answers the real client's ConnectInitial itself rather
// than relaying the real server's response verbatim.
func (pdu *ServerConnectResponse) Serialize() []byte {
	buf := new(bytes.Buffer)

	encoding.BerWriteEnumerated(pdu.Result, buf)
	encoding.BerWriteInteger(pdu.CalledConnectId, buf)
	encoding.BerWriteSequence(pdu.ServerSettings.Serialize(), buf)
	encoding.BerWriteOctetString(pdu.UserData, buf)

	return buf.Bytes()
}
