// Package discovery turns account records into Home Assistant MQTT discovery
// topics and payloads.
package discovery

import (
	"fmt"
	"strings"

	"github.com/mtlprog/mintbridge/internal/domain"
)

const (
	DefaultStatePrefix     = "mint/data"
	DefaultDiscoveryPrefix = "homeassistant"
)

// Topics is the set of MQTT topics owned by a single account.
type Topics struct {
	State            string
	Attributes       string
	DiscoveryBalance string
	DiscoveryUpdate  string
	DiscoveryError   string
}

// Namer derives topics from account identity fields.
type Namer struct {
	StatePrefix     string
	DiscoveryPrefix string
}

// NewNamer creates a Namer, falling back to the default prefixes for empty values.
func NewNamer(statePrefix, discoveryPrefix string) Namer {
	if statePrefix == "" {
		statePrefix = DefaultStatePrefix
	}
	if discoveryPrefix == "" {
		discoveryPrefix = DefaultDiscoveryPrefix
	}
	return Namer{StatePrefix: statePrefix, DiscoveryPrefix: discoveryPrefix}
}

// Topics returns the sanitized topics for an account.
func (n Namer) Topics(a domain.Account) Topics {
	state := fmt.Sprintf("%s/%s/%s_%s", n.StatePrefix, a.FIName, a.Name, a.ID)
	return Topics{
		State:            sanitizeTopic(state),
		Attributes:       sanitizeTopic(state + "/attributes"),
		DiscoveryBalance: sanitizeTopic(fmt.Sprintf("%s/sensor/mint_%s/account_balance/config", n.DiscoveryPrefix, a.ID)),
		DiscoveryUpdate:  sanitizeTopic(fmt.Sprintf("%s/sensor/mint_%s/last_update/config", n.DiscoveryPrefix, a.ID)),
		DiscoveryError:   sanitizeTopic(fmt.Sprintf("%s/binary_sensor/mint_%s/error/config", n.DiscoveryPrefix, a.ID)),
	}
}

// sanitizeTopic lower-cases a topic and replaces spaces with underscores.
func sanitizeTopic(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
