// Package dpiconfig loads engine configuration from an HCL document
// decoded with hclsimple.
package dpiconfig

import (
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	ourerrors "github.com/flowlens/dpi/internal/errors"
)

// TLSMode controls how the engine treats TLS record-layer traffic.
type TLSMode string

const (
	TLSModeDisabled    TLSMode = "disabled"
	TLSModePassthrough TLSMode = "passthrough"
	TLSModeDecrypt     TLSMode = "decrypt" // declared, not implemented
	TLSModeInspect     TLSMode = "inspect"
)

// RuleConfig is the HCL-decodable shape of a rule, mirroring dpi.Rule but
// using string fields for values HCL can express directly.
type RuleConfig struct {
	Name              string `hcl:"name,label"`
	Kind              string `hcl:"kind"`
	Description       string `hcl:"description,optional"`
	Severity          int    `hcl:"severity,optional"`
	Pattern           string `hcl:"pattern"`
	ProtocolScope     string `hcl:"protocol_scope,optional"`
	PortRangeStart    int    `hcl:"port_range_start,optional"`
	PortRangeEnd      int    `hcl:"port_range_end,optional"`
	AppliesToRequest  bool   `hcl:"applies_to_request,optional"`
	AppliesToResponse bool   `hcl:"applies_to_response,optional"`
	Category          string `hcl:"category,optional"`
	Enabled           bool   `hcl:"enabled,optional"`
}

// Config is the engine's full configuration surface, decoded from an HCL
// document. Every option named in the external interfaces table has a
// field here; several (LogTLSKeys, LogDir) are reserved and carried for
// forward compatibility without effect on behavior in the baseline.
type Config struct {
	TLSMode                 string       `hcl:"tls_mode,optional"`
	EnableAnomalyDetection  bool         `hcl:"enable_anomaly_detection,optional"`
	EnableMalwareDetection  bool         `hcl:"enable_malware_detection,optional"`
	ReassemblyTimeoutSec    int          `hcl:"reassembly_timeout_sec,optional"`
	MaxConcurrentSessions   int          `hcl:"max_concurrent_sessions,optional"`
	MemoryLimitMB           int          `hcl:"memory_limit_mb,optional"`
	LogAllAlerts            bool         `hcl:"log_all_alerts,optional"`
	LogTLSKeys              bool         `hcl:"log_tls_keys,optional"`
	LogDir                  string       `hcl:"log_dir,optional"`
	RedactPII               bool         `hcl:"redact_pii,optional"`
	AnonymizeIPs            bool         `hcl:"anonymize_ips,optional"`

	PerBufferCapBytes      int          `hcl:"per_buffer_cap_bytes,optional"`
	MaxAlerts              int          `hcl:"max_alerts,optional"`
	MaxRules               int          `hcl:"max_rules,optional"`
	AlertPayloadSampleBytes int         `hcl:"alert_payload_sample_bytes,optional"`
	FlowTableShards        int          `hcl:"flow_table_shards,optional"`

	Rules []RuleConfig `hcl:"rule,block"`
}

// Default returns the configuration defaults named throughout the
// external-interfaces table and the component design sections.
func Default() Config {
	return Config{
		TLSMode:                 string(TLSModePassthrough),
		EnableAnomalyDetection:  true,
		EnableMalwareDetection:  false,
		ReassemblyTimeoutSec:    300,
		MaxConcurrentSessions:   100_000,
		MemoryLimitMB:           0, // 0 disables the soft ceiling
		PerBufferCapBytes:       16 * 1024 * 1024,
		MaxAlerts:               1_000_000,
		MaxRules:                10_000,
		AlertPayloadSampleBytes: 256,
		FlowTableShards:         64,
	}
}

// Load decodes an HCL configuration file at path, starting from Default
// and overwriting only the fields the document sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, ourerrors.Wrap(err, ourerrors.KindNotFound, "read dpi config")
	}
	if err := hclsimple.Decode(path, data, nil, &cfg); err != nil {
		return Config{}, ourerrors.Wrap(err, ourerrors.KindValidation, "decode dpi config")
	}
	return cfg, nil
}
