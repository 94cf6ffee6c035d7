package config

import "time"

type App struct {
	Port               string
	Env                string
	DatabaseDriver     string
	DatabaseURL        string
	AutoMigrate        bool
	JWTSecret          string
	RabbitMQURL        string
	RabbitMQExchange   string
	LoanPeriod         time.Duration
	FinePerDay         int64
	ActiveAcademicYear string
}
