// config.go
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"shop-orders-service/internal/model"
)

type Config struct {
	MongoURI    string
	MongoDBName string
	AuthURL     string
	RabbitURL   string
	Port        string
	LogLevel    string

	// Estados que cuentan como "no liquidados" al sumar pedidos pendientes.
	// Configurable porque no está claro si PAID debería entrar (ver DESIGN.md).
	UnsettledStatuses []model.OrderStatus
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "shop_orders_db"),
		AuthURL:           getEnv("AUTH_SERVICE_URL", "http://localhost:3000"),
		RabbitURL:         getEnv("RABBIT_URL", "amqp://localhost"),
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		UnsettledStatuses: parseStatuses(getEnv("UNSETTLED_STATUSES", "PENDING,PROCESSING")),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseStatuses(raw string) []model.OrderStatus {
	var out []model.OrderStatus
	for _, part := range strings.Split(raw, ",") {
		s := model.OrderStatus(strings.TrimSpace(part))
		if s.Valid() {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []model.OrderStatus{model.StatusPending, model.StatusProcessing}
	}
	return out
}
