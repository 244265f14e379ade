package security

import (
	"crypto/tls"
	"fmt"
)

// LoadServerCertificate loads a PEM certificate/key pair for the proxy's
// client-facing TLS listener (used when the client negotiates
// PROTOCOL_SSL/PROTOCOL_HYBRID during the RDP Negotiation Request).
func LoadServerCertificate(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("security: load server certificate: %w", err)
	}
	return cert, nil
}

// ServerTLSConfig builds the *tls.Config the client-facing listener
// upgrades to once it has sent an RDP Negotiation Response advertising
// PROTOCOL_SSL. RDP clients generally present a long-lived self-signed
// certificate, so client certificate verification is not requested here.
func ServerTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS10,
	}
}
