package bus

import (
	"strings"

	"github.com/ricesearch/rice-insight/internal/config"
	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// NewBus creates the event bus selected by the configuration.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryBus(log), nil

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.ValidationError("kafka brokers not configured")
		}

		group := cfg.KafkaGroup
		if group == "" {
			group = DefaultKafkaGroup
		}

		return NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: group,
			ClientID:      DefaultKafkaClientID,
		}, log)

	default:
		return nil, errors.ValidationError("unknown bus type").WithDetail("type", cfg.Type)
	}
}
