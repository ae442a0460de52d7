package config

import (
	"time"

	"github.com/shaunie2fly/shellwire/protocol"
	"gopkg.in/yaml.v3"
)

// yamlDuration parses a YAML scalar like "30s" into a time.Duration,
// since yaml.v3 does not decode time.Duration natively.
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = yamlDuration(parsed)
	return nil
}

func (d yamlDuration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d yamlDuration) Duration() time.Duration {
	return time.Duration(d)
}

func protocolAuthType(s string) protocol.AuthType {
	switch protocol.AuthType(s) {
	case protocol.AuthBasic:
		return protocol.AuthBasic
	case protocol.AuthToken:
		return protocol.AuthToken
	default:
		return protocol.AuthNone
	}
}
