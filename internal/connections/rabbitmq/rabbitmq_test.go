package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-system/internal/common/config"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MQ
		want string
	}{
		{"default vhost", config.MQ{Host: "mq", Port: 5672, User: "guest", Pass: "guest", VHost: "/"}, "amqp://guest:guest@mq:5672/"},
		{"named vhost", config.MQ{Host: "mq", Port: 5672, User: "u", Pass: "p", VHost: "pos"}, "amqp://u:p@mq:5672/pos"},
		{"tls", config.MQ{Host: "mq", Port: 5671, User: "u", Pass: "p@ss", TLS: true}, "amqps://u:p%40ss@mq:5671/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URL(tt.cfg))
		})
	}
}
