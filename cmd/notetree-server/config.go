package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Bren2010/notetree/crypto/suites"
)

// Config specifies the file format of config files.
type Config struct {
	ServerAddr  string     `yaml:"addr"`
	MetricsAddr string     `yaml:"metrics-addr"`
	TLSConfig   *TLSConfig `yaml:"tls"`
	tlsConfig   *tls.Config

	DatabaseConfig *DatabaseConfig `yaml:"database"`
	TreeConfig     *TreeConfig     `yaml:"tree"`
	NATSConfig     *NATSConfig     `yaml:"nats"`
	APIConfig      *APIConfig      `yaml:"api"`
}

// TLSConfig specifies the API server's TLS config. Enabling TLS also enables
// mutual authentication: every client must present a certificate signed by
// ClientCA.
type TLSConfig struct {
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	ClientCA string `yaml:"client-ca"` // CA for validating client certificates.
}

type DatabaseConfig struct {
	Engine string `yaml:"engine"` // Either "leveldb" or "badger".
	File   string `yaml:"file"`
}

type TreeConfig struct {
	Suite  string `yaml:"suite"`
	Levels int    `yaml:"levels"`
	suite  suites.CipherSuite
}

// NATSConfig is optional. When present, every change to the tree is published
// to the given subject.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type APIConfig struct {
	HomeRedirect string `yaml:"home"`
}

func ReadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (*Config, error) {
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	// Check that all required fields are populated.
	if parsed.ServerAddr == "" {
		return nil, fmt.Errorf("field not provided: addr")
	} else if parsed.APIConfig == nil {
		return nil, fmt.Errorf("field not provided: api")
	} else if parsed.APIConfig.HomeRedirect == "" {
		return nil, fmt.Errorf("field not provided: api.home")
	} else if parsed.DatabaseConfig == nil {
		return nil, fmt.Errorf("field not provided: database")
	} else if parsed.DatabaseConfig.File == "" {
		return nil, fmt.Errorf("field not provided: database.file")
	} else if parsed.TreeConfig == nil {
		return nil, fmt.Errorf("field not provided: tree")
	} else if parsed.TreeConfig.Suite == "" {
		return nil, fmt.Errorf("field not provided: tree.suite")
	} else if parsed.TreeConfig.Levels == 0 {
		return nil, fmt.Errorf("field not provided: tree.levels")
	}
	if parsed.NATSConfig != nil {
		if parsed.NATSConfig.URL == "" {
			return nil, fmt.Errorf("field not provided: nats.url")
		} else if parsed.NATSConfig.Subject == "" {
			return nil, fmt.Errorf("field not provided: nats.subject")
		}
	}

	switch parsed.DatabaseConfig.Engine {
	case "":
		parsed.DatabaseConfig.Engine = "leveldb"
	case "leveldb", "badger":
	default:
		return nil, fmt.Errorf("unknown database engine: %v", parsed.DatabaseConfig.Engine)
	}

	if parsed.TreeConfig.Levels < 1 || parsed.TreeConfig.Levels > 64 {
		return nil, fmt.Errorf("tree.levels must be between 1 and 64: %v", parsed.TreeConfig.Levels)
	}
	cs, err := suites.FromName(parsed.TreeConfig.Suite)
	if err != nil {
		return nil, err
	}
	parsed.TreeConfig.suite = cs

	// Parse TLS config if necessary.
	if parsed.TLSConfig != nil {
		cert, err := tls.LoadX509KeyPair(parsed.TLSConfig.Cert, parsed.TLSConfig.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate/key: %v", err)
		}

		certPool := x509.NewCertPool()
		caCerts, err := os.ReadFile(parsed.TLSConfig.ClientCA)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS client CA: %v", err)
		} else if ok := certPool.AppendCertsFromPEM(caCerts); !ok {
			return nil, fmt.Errorf("no client CA certificates successfully parsed from file")
		}

		parsed.tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			ClientAuth:   tls.RequireAndVerifyClientCert,
			ClientCAs:    certPool,
		}
	}

	return &parsed, nil
}
