package discovery

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mtlprog/mintbridge/internal/domain"
)

const (
	deviceManufacturer = "Mint Scraper"
	deviceModel        = "Bank Account"

	iconChecking   = "mdi:checkbook"
	iconBank       = "mdi:piggy-bank"
	iconInvestment = "mdi:chart-line"
	iconUpdate     = "mdi:update"
	iconError      = "mdi:alert-circle"

	balanceValueTemplate   = "{{ value_json.availableBalance if value_json.availableBalance is defined else value_json.currentBalance if value_json.currentBalance is defined else value_json.value }}"
	updateValueTemplate    = "{{ value_json.metaData.lastUpdatedDate | as_datetime }}"
	errorValueTemplate     = "{{ value_json.isError }}"
	attributesTemplateJSON = "{{ value_json | tojson }}"
)

// Device groups the sensors of one institution login.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
}

// Payload is a discovery config message. Optional fields use omitempty: an
// absent key means "use the default" to the consumer, which is not the same
// as an explicit empty or false value.
type Payload struct {
	Device        Device `json:"device"`
	Name          string `json:"name"`
	UniqueID      string `json:"unique_id"`
	StateTopic    string `json:"state_topic"`
	ValueTemplate string `json:"value_template"`
	ForceUpdate   bool   `json:"force_update"`

	UnitOfMeasurement      string `json:"unit_of_measurement,omitempty"`
	Icon                   string `json:"icon,omitempty"`
	PayloadOff             string `json:"payload_off,omitempty"`
	EntityCategory         string `json:"entity_category,omitempty"`
	ObjectID               string `json:"object_id,omitempty"`
	StateClass             string `json:"state_class,omitempty"`
	ExpireAfter            int    `json:"expire_after,omitempty"`
	PayloadOn              string `json:"payload_on,omitempty"`
	DeviceClass            string `json:"device_class,omitempty"`
	JSONAttributesTopic    string `json:"json_attributes_topic,omitempty"`
	JSONAttributesTemplate string `json:"json_attributes_template,omitempty"`
}

// Options configures a discovery payload. Zero values are left out of the payload.
type Options struct {
	StateTopic             string
	ValueTemplate          string
	ForceUpdate            bool
	UnitOfMeasurement      string
	Icon                   string
	PayloadOff             string
	EntityCategory         string
	ObjectID               string
	StateClass             string
	ExpireAfter            int // seconds
	PayloadOn              string
	DeviceClass            string
	JSONAttributesTopic    string
	JSONAttributesTemplate string
}

// BuildPayload builds the discovery payload of one sensor of an account.
func BuildPayload(a domain.Account, sensorSuffix string, opts Options) Payload {
	p := Payload{
		Device: Device{
			Identifiers:  []string{a.FILoginID},
			Manufacturer: deviceManufacturer,
			Model:        deviceModel,
			Name:         a.FIName,
		},
		Name:          capitalize(a.Name) + " " + sensorSuffix,
		UniqueID:      strings.ReplaceAll(a.ID+"_"+sensorSuffix, " ", "_"),
		StateTopic:    opts.StateTopic,
		ValueTemplate: opts.ValueTemplate,
		ForceUpdate:   opts.ForceUpdate,

		UnitOfMeasurement: opts.UnitOfMeasurement,
		Icon:              opts.Icon,
		PayloadOff:        opts.PayloadOff,
		EntityCategory:    opts.EntityCategory,
		ObjectID:          opts.ObjectID,
		StateClass:        opts.StateClass,
		ExpireAfter:       opts.ExpireAfter,
		PayloadOn:         opts.PayloadOn,
		DeviceClass:       opts.DeviceClass,
	}

	if opts.JSONAttributesTemplate != "" {
		p.JSONAttributesTopic = opts.JSONAttributesTopic
		if p.JSONAttributesTopic == "" {
			p.JSONAttributesTopic = opts.StateTopic
		}
		p.JSONAttributesTemplate = opts.JSONAttributesTemplate
	}

	return p
}

// BalancePayload builds the balance sensor of an account.
func BalancePayload(a domain.Account, t Topics) Payload {
	return BuildPayload(a, "balance", Options{
		StateTopic:             t.State,
		ValueTemplate:          balanceValueTemplate,
		ForceUpdate:            true,
		UnitOfMeasurement:      a.Currency,
		Icon:                   balanceIcon(a),
		ObjectID:               objectID(a, "balance"),
		StateClass:             "measurement",
		JSONAttributesTopic:    t.Attributes,
		JSONAttributesTemplate: attributesTemplateJSON,
	})
}

// UpdatePayload builds the last-update timestamp sensor of an account.
func UpdatePayload(a domain.Account, t Topics) Payload {
	return BuildPayload(a, "updated", Options{
		StateTopic:    t.State,
		ValueTemplate: updateValueTemplate,
		ObjectID:      objectID(a, "last update"),
		DeviceClass:   "timestamp",
		Icon:          iconUpdate,
	})
}

// ErrorPayload builds the diagnostic error binary sensor of an account.
// The on/off markers are strings because the consumer compares rendered
// template output against them.
func ErrorPayload(a domain.Account, t Topics) Payload {
	return BuildPayload(a, "error", Options{
		StateTopic:     t.State,
		ValueTemplate:  errorValueTemplate,
		EntityCategory: "diagnostic",
		ObjectID:       objectID(a, "error"),
		PayloadOn:      "true",
		PayloadOff:     "false",
		Icon:           iconError,
	})
}

func balanceIcon(a domain.Account) string {
	switch {
	case a.Type == domain.AccountTypeInvestment:
		return iconInvestment
	case a.IsChecking():
		return iconChecking
	default:
		return iconBank
	}
}

func objectID(a domain.Account, sensor string) string {
	return fmt.Sprintf("mint %s %s %s", a.FIName, a.Name, sensor)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
