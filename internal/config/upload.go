package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// UploadPolicy constrains attachment uploads. The defaults admit only
// PDF payloads, matching the attachment contract.
type UploadPolicy struct {
	MaxSizeBytes int64    `mapstructure:"maxSizeBytes"`
	AllowedTypes []string `mapstructure:"allowedTypes"`
}

func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxSizeBytes: 20 << 20, // 20 MiB
		AllowedTypes: []string{"application/pdf"},
	}
}

// Allows reports whether the declared content type is admitted.
func (p UploadPolicy) Allows(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, allowed := range p.AllowedTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

// UploadPolicyHolder keeps the active policy and swaps it atomically on
// config reload, so in-flight requests always see a consistent value.
type UploadPolicyHolder struct {
	current atomic.Value // holds UploadPolicy
}

// NewUploadPolicyHolder reads upload.yml (volume-mounted config, system
// config, or the working directory) and watches it for changes. A
// missing file falls back to defaults; an invalid reload is ignored.
func NewUploadPolicyHolder() (*UploadPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("upload")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/commesse/config")
	v.AddConfigPath("/etc/commesse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMMESSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultUploadPolicy()
	v.SetDefault("upload.maxSizeBytes", defaults.MaxSizeBytes)
	v.SetDefault("upload.allowedTypes", defaults.AllowedTypes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy UploadPolicy
	if err := v.UnmarshalKey("upload", &policy); err != nil {
		return nil, err
	}
	if err := validateUploadPolicy(policy); err != nil {
		return nil, err
	}

	holder := &UploadPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated UploadPolicy
		if err := v.UnmarshalKey("upload", &updated); err != nil {
			log.Printf("[upload-config] reload failed: %v", err)
			return
		}
		if err := validateUploadPolicy(updated); err != nil {
			log.Printf("[upload-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[upload-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *UploadPolicyHolder) Get() UploadPolicy {
	return h.current.Load().(UploadPolicy)
}

// NewStaticUploadPolicyHolder is for tests and embedding callers that
// have no config file to watch.
func NewStaticUploadPolicyHolder(policy UploadPolicy) *UploadPolicyHolder {
	holder := &UploadPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func validateUploadPolicy(p UploadPolicy) error {
	if p.MaxSizeBytes <= 0 {
		return errors.New("upload.maxSizeBytes must be positive")
	}
	if len(p.AllowedTypes) == 0 {
		return errors.New("upload.allowedTypes cannot be empty")
	}
	return nil
}
