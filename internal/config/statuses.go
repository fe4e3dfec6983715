package config

import (
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// StatusConfig maps payment events onto the host platform's status vocabulary.
// The ids are opaque to this plugin; they are forwarded to the order repository
// as-is.
type StatusConfig struct {
	// Payment status set once a complete notification authenticates.
	PaymentComplete int `mapstructure:"paymentComplete"`
	// Order status set together with the paid payment status.
	OrderPendingAfterPayment int `mapstructure:"orderPendingAfterPayment"`
	// Order status set for rejected and canceled notifications.
	OrderCancelled int `mapstructure:"orderCancelled"`
}

// DefaultStatusConfig holds the stock status ids of common shop platforms.
func DefaultStatusConfig() StatusConfig {
	return StatusConfig{
		PaymentComplete:          12,
		OrderPendingAfterPayment: 1,
		OrderCancelled:           4,
	}
}

// loadStatusConfig reads the optional statuses.yml mapping file. Missing file
// or keys fall back to defaults; the mapping is fixed for the process lifetime.
func loadStatusConfig() StatusConfig {
	v := viper.New()

	v.SetConfigName("statuses")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/paygate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStatusConfig()
	v.SetDefault("statuses.paymentComplete", defaults.PaymentComplete)
	v.SetDefault("statuses.orderPendingAfterPayment", defaults.OrderPendingAfterPayment)
	v.SetDefault("statuses.orderCancelled", defaults.OrderCancelled)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("statuses config unreadable, using defaults: %v", err)
			return defaults
		}
	} else {
		// The mapping is fixed for the process lifetime; edits only take
		// effect on restart, so surface them instead of applying them.
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Printf("statuses config changed (%s), restart to apply", e.Name)
		})
		v.WatchConfig()
	}

	var cfg StatusConfig
	if err := v.UnmarshalKey("statuses", &cfg); err != nil {
		log.Printf("statuses config invalid, using defaults: %v", err)
		return defaults
	}
	return cfg
}
