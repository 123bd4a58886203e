package logging

import (
	"fmt"
	"log/syslog"

	ourerrors "github.com/flowlens/dpi/internal/errors"
)

// SyslogConfig controls forwarding of log output to a remote syslog
// collector. New enables forwarding when Config.Syslog is set and Enabled.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string
	Tag      string
	Facility int
}

// DefaultSyslogConfig returns a disabled syslog configuration with the
// conventional UDP/514 defaults.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "dpi",
		Facility: 1,
	}
}

// NewSyslogWriter dials a syslog collector and returns an io.Writer
// suitable for use as a Config.Output. Zero-value Port/Protocol/Tag are
// defaulted before dialing.
func NewSyslogWriter(cfg SyslogConfig) (*syslog.Writer, error) {
	if cfg.Host == "" {
		return nil, ourerrors.New(ourerrors.KindValidation, "syslog host must not be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "dpi"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	w, err := syslog.Dial(cfg.Protocol, addr, syslog.Priority(cfg.Facility)<<3|syslog.LOG_INFO, cfg.Tag)
	if err != nil {
		return nil, ourerrors.Wrap(err, ourerrors.KindUnavailable, "dial syslog collector")
	}
	return w, nil
}
