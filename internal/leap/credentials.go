package leap

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Default credential file names.
const (
	DefaultKeyFile  = "caseta.key"
	DefaultCertFile = "caseta.crt"
	DefaultCAFile   = "caseta-bridge.crt"
)

// Credentials locates the PEM files produced by pairing: the client key,
// the client certificate signed by the bridge, and the bridge CA.
type Credentials struct {
	KeyFile  string
	CertFile string
	CAFile   string
}

// CredentialsIn returns the default file names inside dir.
func CredentialsIn(dir string) Credentials {
	return Credentials{
		KeyFile:  filepath.Join(dir, DefaultKeyFile),
		CertFile: filepath.Join(dir, DefaultCertFile),
		CAFile:   filepath.Join(dir, DefaultCAFile),
	}
}

// Missing returns the credential files that do not exist.
func (c Credentials) Missing() []string {
	var missing []string
	for _, path := range []string{c.KeyFile, c.CertFile, c.CAFile} {
		if path == "" {
			missing = append(missing, path)
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, path)
		}
	}
	return missing
}

// Exists reports whether all three files are present.
func (c Credentials) Exists() bool {
	return len(c.Missing()) == 0
}

// TLSConfig builds the client TLS configuration.
//
// The bridge certificate is verified against the bridge CA. Its host name
// is not checked because bridges are addressed by IP.
func (c Credentials) TLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: load key pair: %w", ErrCredentials, err)
	}

	caPEM, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read CA: %w", ErrCredentials, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("%w: no certificates in %s", ErrCredentials, c.CAFile)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		//nolint:gosec // chain is verified in VerifyConnection
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return fmt.Errorf("%w: bridge sent no certificate", ErrCredentials)
			}
			opts := x509.VerifyOptions{
				Roots:         pool,
				Intermediates: x509.NewCertPool(),
			}
			for _, ic := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(ic)
			}
			_, err := cs.PeerCertificates[0].Verify(opts)
			return err
		},
	}, nil
}
