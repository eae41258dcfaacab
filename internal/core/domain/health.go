package domain

// HealthReport is the aggregated dependency status served on /v1/health.
type HealthReport struct {
	Server   bool `json:"server"`
	Database bool `json:"database"`
	Cache    bool `json:"cache"`
	RabbitMQ bool `json:"rabbitmq"`
}
