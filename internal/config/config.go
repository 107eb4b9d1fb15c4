package config

import (
	"errors"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// 这些值表示使用者还没有填写真实的数据库配置
var placeholderDSNs = []string{"", "YOUR_DATABASE_DSN", "changeme"}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ProgramName string `env:"PROGRAM_NAME" envDefault:"Spring 2026 Student Assistant Program"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Access struct {
		StudentCode string `env:"STUDENT_CODE,required"`
		AdminCode   string `env:"ADMIN_CODE,required"`
	} `envPrefix:"ACCESS_"`
	Database struct {
		DSN                string `env:"DSN"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Local struct {
		Path string `env:"PATH" envDefault:"./data/sa_signup_standalone_data.db"`
	} `envPrefix:"LOCAL_STORE_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"12"` // 小时
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Email struct {
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
		SMTP        struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Addr              string `env:"ADDR"`
		Password          string `env:"PASSWORD"`
		DB                int    `env:"DB" envDefault:"0"`
		ConnectTimeout    int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationTimeout  int    `env:"OPERATION_TIMEOUT" envDefault:"2"`
		SummaryExpiration int    `env:"SUMMARY_EXPIRATION" envDefault:"300"` // 秒
	} `envPrefix:"REDIS_"`
	Export struct {
		Timezone string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`
	} `envPrefix:"EXPORT_"`
	Seed struct {
		EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"apu.ac.jp"`
	} `envPrefix:"SEED_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	// 两个访问码相同时无法区分学生和管理员
	if cfg.Access.StudentCode == cfg.Access.AdminCode {
		return nil, errors.New("ACCESS_STUDENT_CODE 和 ACCESS_ADMIN_CODE 不能相同")
	}

	return cfg, nil
}

// UseRemoteStore 根据是否提供了真实的数据库配置来决定使用远程数据库还是本地存储
func (c *Config) UseRemoteStore() bool {
	return !slices.Contains(placeholderDSNs, strings.TrimSpace(c.Database.DSN))
}

func (c *Config) UseRedis() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

func (c *Config) UseMailQueue() bool {
	return strings.TrimSpace(c.RabbitMQ.DSN) != ""
}
